package playback

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"voxspot/internal/core"
	"voxspot/internal/librespot"
	"voxspot/pkg/fuzzy"
)

// DeviceThreshold is the minimum similarity for a spoken or configured device name.
const DeviceThreshold = 0.5

// ResolveDefaultDevice picks the device playback should go to when the user
// did not name one, transferring playback to it if it is not active.
func (c *Controller) ResolveDefaultDevice(ctx context.Context) (core.Device, error) {
	c.lock()
	defer c.unlock()
	if !c.authenticated {
		return core.Device{}, core.ErrNotAuthorized
	}
	return c.resolveDefaultDeviceLocked(ctx)
}

func (c *Controller) resolveDefaultDeviceLocked(ctx context.Context) (core.Device, error) {
	devices := c.liveDevicesLocked(ctx)

	device, how, ok := c.pickDevice(ctx, devices)
	if !ok {
		c.logger.Warn("No Spotify device available", zap.Int("devices", len(devices)))
		return core.Device{}, core.ErrNoDevices
	}
	c.logger.Debug("Resolved default device",
		zap.String("device", device.Name),
		zap.String("strategy", how))

	if !device.IsActive {
		if err := c.transferLocked(ctx, device, false); err != nil {
			return core.Device{}, err
		}
	}
	return device, nil
}

// pickDevice applies the resolution strategies in priority order.
func (c *Controller) pickDevice(ctx context.Context, devices []core.Device) (core.Device, string, bool) {
	if len(devices) == 0 {
		return core.Device{}, "", false
	}

	if status := c.client.Status(ctx); status != nil && status.IsPlaying {
		if status.Device != nil {
			for _, d := range devices {
				if d.ID == status.Device.ID && d.IsActive {
					return d, "active", true
				}
			}
		}
		for _, d := range devices {
			if d.IsActive {
				return d, "active", true
			}
		}
	}

	if d, ok := deviceByName(devices, c.settings.DefaultDevice); ok {
		return d, "preferred", true
	}
	if d, ok := deviceByName(devices, c.ownDeviceName()); ok {
		return d, "own", true
	}
	if host, err := c.hostname(); err == nil {
		if d, ok := deviceByName(devices, host); ok {
			return d, "hostname", true
		}
	}
	return devices[0], "first", true
}

// liveDevicesLocked returns the cached devices, refetching early when the
// helper is running but its device is missing from the list.
func (c *Controller) liveDevicesLocked(ctx context.Context) []core.Device {
	devices := c.devices.Get(ctx)
	if c.helper == nil || !c.helper.Alive() {
		return devices
	}
	own := c.ownDeviceName()
	for _, d := range devices {
		if strings.EqualFold(d.Name, own) {
			return devices
		}
	}
	c.logger.Debug("Helper device missing from device list, refreshing", zap.String("device", own))
	c.devices.Invalidate()
	return c.devices.Get(ctx)
}

func (c *Controller) namedDeviceLocked(ctx context.Context, name string) (core.Device, error) {
	if d, ok := deviceByName(c.liveDevicesLocked(ctx), name); ok {
		return d, nil
	}
	return core.Device{}, core.ErrDeviceNotFound
}

// deviceByName fuzzy matches name against the device names.
func deviceByName(devices []core.Device, name string) (core.Device, bool) {
	if name == "" || len(devices) == 0 {
		return core.Device{}, false
	}
	names := make([]string, len(devices))
	for i, d := range devices {
		names[i] = d.Name
	}
	match, confidence, ok := fuzzy.BestMatch(name, names)
	if !ok || confidence <= DeviceThreshold {
		return core.Device{}, false
	}
	for _, d := range devices {
		if d.Name == match {
			return d, true
		}
	}
	return core.Device{}, false
}

func (c *Controller) ownDeviceName() string {
	if c.helper != nil {
		if name := c.helper.DeviceName(); name != "" {
			return name
		}
	}
	return c.opts.DeviceName
}

func (c *Controller) isOwnDevice(d core.Device) bool {
	return strings.EqualFold(d.Name, c.ownDeviceName())
}

// ensureHelperLocked launches the helper on first use when credentials are
// configured. An early exit surfaces as an authorization failure; any other
// launch problem is logged and resolution continues with remote devices.
func (c *Controller) ensureHelperLocked(ctx context.Context) error {
	if c.helper == nil || !c.settings.HasCredentials() || c.helper.Alive() {
		return nil
	}
	err := c.launchHelperLocked(ctx)
	if err == nil || errors.Is(err, core.ErrHelperExited) {
		return err
	}
	c.logger.Warn("Failed to launch librespot", zap.Error(err))
	return nil
}

// RestartHelper relaunches the helper with the current settings, or stops it
// when no credentials are configured.
func (c *Controller) RestartHelper(ctx context.Context) error {
	c.lock()
	defer c.unlock()

	if c.helper == nil {
		return nil
	}
	if !c.settings.HasCredentials() {
		c.helper.Stop()
		return nil
	}
	return c.launchHelperLocked(ctx)
}

func (c *Controller) launchHelperLocked(ctx context.Context) error {
	path := c.settings.LibrespotPath
	if path == "" {
		path = c.opts.LibrespotPath
	}
	err := c.helper.Launch(ctx, librespot.Options{
		Path:       path,
		DeviceName: c.opts.DeviceName,
		User:       c.settings.User,
		Password:   c.settings.Password,
	})
	if err != nil {
		return err
	}

	c.devices.Invalidate()
	volume := core.DefaultVolumeForPlatform(c.opts.Platform)
	for _, d := range c.devices.Get(ctx) {
		if !strings.EqualFold(d.Name, c.opts.DeviceName) {
			continue
		}
		if err := c.client.SetVolume(ctx, d.ID, volume); err != nil {
			c.logger.Warn("Failed to set helper volume", zap.String("device", d.Name), zap.Error(err))
		}
		break
	}
	return nil
}
