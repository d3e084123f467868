package skill

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"voxspot/internal/core"
	"voxspot/internal/host/mqtt"
)

func (s *Skill) decode(topic string, payload []byte, v any) bool {
	if err := json.Unmarshal(payload, v); err != nil {
		s.logger.Warn("Ignoring malformed bus message", zap.String("topic", topic), zap.Error(err))
		return false
	}
	return true
}

// handleQuery answers a play query when the phrase is for this skill.
func (s *Skill) handleQuery(ctx context.Context, payload []byte) {
	var q mqtt.Query
	if !s.decode(mqtt.TopicPlayQuery, payload, &q) {
		return
	}

	result := s.matcher.Match(ctx, q.Phrase, q.Service)
	if result == nil {
		s.logger.Debug("Phrase not matched", zap.String("phrase", q.Phrase))
		return
	}

	data, err := json.Marshal(result.Request)
	if err != nil {
		s.logger.Error("Failed to encode callback data", zap.Error(err))
		return
	}
	s.logger.Debug("Phrase matched",
		zap.String("phrase", q.Phrase),
		zap.String("kind", result.Request.Kind.String()),
		zap.Float64("confidence", result.Confidence))

	response := mqtt.QueryResponse{
		ID:           q.ID,
		Phrase:       q.Phrase,
		SkillID:      s.opts.SkillID,
		Confidence:   result.Confidence,
		DisplayName:  result.DisplayName,
		CallbackData: data,
	}
	if err := s.bus.Publish(ctx, mqtt.TopicPlayQueryResponse, response); err != nil {
		s.logger.Warn("Failed to answer play query", zap.Error(err))
	}
}

// handleStart plays the interpretation offered in an earlier query response.
func (s *Skill) handleStart(ctx context.Context, payload []byte) {
	var msg mqtt.Start
	if !s.decode(mqtt.TopicPlayStart, payload, &msg) {
		return
	}
	if msg.SkillID != "" && msg.SkillID != s.opts.SkillID {
		return
	}

	req, ok := s.requestFor(ctx, msg)
	if !ok {
		return
	}
	s.start(ctx, req, "")
}

// requestFor decodes the callback data, matching the phrase again when the
// host did not hand any back.
func (s *Skill) requestFor(ctx context.Context, msg mqtt.Start) (core.PlaybackRequest, bool) {
	if len(msg.CallbackData) > 0 && string(msg.CallbackData) != "null" {
		var req core.PlaybackRequest
		if s.decode(mqtt.TopicPlayStart, msg.CallbackData, &req) {
			return req, true
		}
		return core.PlaybackRequest{}, false
	}
	result := s.matcher.Match(ctx, msg.Phrase, true)
	if result == nil {
		return core.GenericRequest(), true
	}
	return result.Request, true
}

// start plays req and speaks either what is playing or the one dialog for
// the failure.
func (s *Skill) start(ctx context.Context, req core.PlaybackRequest, device string) {
	var err error
	if device == "" {
		err = s.player.Start(ctx, req)
	} else {
		err = s.player.StartOn(ctx, req, device)
	}
	if err != nil {
		s.speakError(ctx, "playback", err)
		return
	}
	dialog, data := listeningDialog(req)
	s.speak(ctx, dialog, data)
}

func listeningDialog(req core.PlaybackRequest) (string, map[string]string) {
	switch req.Kind {
	case core.KindTrack:
		if req.Artist == "" {
			return "listening_to", map[string]string{"name": req.Name}
		}
		return "listening_to_song_by", map[string]string{"name": req.Name, "artist": req.Artist}
	case core.KindAlbum:
		if req.Artist == "" {
			return "listening_to", map[string]string{"name": req.Name}
		}
		return "listening_to_album_by", map[string]string{"name": req.Name, "artist": req.Artist}
	case core.KindArtist:
		return "listening_to_artist", map[string]string{"artist": req.Artist}
	case core.KindPlaylist:
		return "listening_to", map[string]string{"name": req.Name}
	case core.KindGenre:
		return "listening_to_genre", map[string]string{"genre": req.Genre}
	default:
		return "resuming", nil
	}
}

func (s *Skill) handleNext(ctx context.Context, _ []byte) {
	s.control("next", s.player.Next(ctx))
}

func (s *Skill) handlePrevious(ctx context.Context, _ []byte) {
	s.control("previous", s.player.Previous(ctx))
}

func (s *Skill) handlePause(ctx context.Context, _ []byte) {
	s.ducker.Cancel()
	s.control("pause", s.player.Pause(ctx))
}

func (s *Skill) handleResume(ctx context.Context, _ []byte) {
	s.control("resume", s.player.Resume(ctx))
}

func (s *Skill) handleStop(ctx context.Context, _ []byte) {
	s.ducker.Cancel()
	s.player.Stop(ctx)
}

// control logs failures of host control events. These events are broadcast
// to every audio skill, so they never speak.
func (s *Skill) control(op string, err error) {
	if err == nil {
		return
	}
	s.logger.Warn("Playback control failed", zap.String("op", op), zap.Error(err))
	s.recordError("control", err)
}

func (s *Skill) handleRecordBegin(ctx context.Context, _ []byte) {
	s.ducker.ListenerStarted(ctx)
}

func (s *Skill) handleRecordEnd(context.Context, []byte) {
	s.ducker.ListenerStopped()
}

func (s *Skill) handleListDevices(ctx context.Context, _ []byte) {
	if !s.auth.IsAuthenticated() {
		s.speakError(ctx, "devices", core.ErrNotAuthorized)
		return
	}

	devices := s.player.Devices(ctx)
	names := make([]string, 0, len(devices))
	for _, d := range devices {
		names = append(names, d.Name)
	}

	switch len(names) {
	case 0:
		s.speakError(ctx, "devices", core.ErrNoDevices)
	case 1:
		s.say(ctx, names[0], "")
	default:
		s.speak(ctx, "AvailableDevices", map[string]string{"devices": s.loc.JoinList(names)})
	}
}

func (s *Skill) handleTransfer(ctx context.Context, payload []byte) {
	var intent mqtt.DeviceIntent
	if !s.decode(mqtt.TopicTransfer, payload, &intent) {
		return
	}

	device, moved, err := s.player.Transfer(ctx, intent.Device)
	if err != nil {
		s.speakError(ctx, "transfer", err)
		return
	}
	if moved {
		s.speak(ctx, "TransferredTo", map[string]string{"device": device.Name})
	}
}

// handlePlayOn plays a named playlist, or continues playback, on a named device.
func (s *Skill) handlePlayOn(ctx context.Context, payload []byte) {
	var intent mqtt.DeviceIntent
	if !s.decode(mqtt.TopicPlayOn, payload, &intent) {
		return
	}

	if !s.auth.IsAuthenticated() {
		s.speakError(ctx, "playback", core.ErrNotAuthorized)
		return
	}

	req := core.ContinueRequest()
	if intent.Playlist != "" {
		playlist, _, err := s.matcher.ResolvePlaylist(ctx, intent.Playlist)
		if err != nil {
			s.speakError(ctx, "playback", err)
			return
		}
		req = core.PlaylistRequest(playlist, s.playlistAsContext())
	}
	s.start(ctx, req, intent.Device)
}

func (s *Skill) handleSettingsChanged(ctx context.Context, payload []byte) {
	var msg mqtt.SettingsChanged
	if !s.decode(mqtt.TopicSettingsChanged, payload, &msg) {
		return
	}
	if err := s.settings.Save(ctx, msg.Settings); err != nil {
		s.logger.Error("Failed to save settings", zap.Error(err))
	}
}
