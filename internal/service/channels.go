package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"courtlog/internal/domain"
)

// ChannelService registers whitelisted source channels, resolving their
// display metadata through the source adapter.
type ChannelService struct {
	source   VideoSource
	channels ChannelStore
	logger   *slog.Logger
}

func NewChannelService(source VideoSource, channels ChannelStore, logger *slog.Logger) *ChannelService {
	return &ChannelService{
		source:   source,
		channels: channels,
		logger:   logger.With("component", "channels"),
	}
}

func (s *ChannelService) Register(ctx context.Context, externalID string, cadence domain.Cadence) (*domain.Channel, error) {
	if strings.TrimSpace(externalID) == "" {
		return nil, &domain.ValidationError{Reason: "channel external id is required"}
	}
	if !cadence.Valid() {
		return nil, &domain.ValidationError{Reason: fmt.Sprintf("unknown cadence %q", cadence)}
	}

	info, err := s.source.ChannelInfo(ctx, externalID)
	if err != nil {
		return nil, &domain.FetchError{ChannelExternalID: externalID, Err: err}
	}

	channel := domain.Channel{
		ExternalID:  info.ExternalID,
		Name:        info.Name,
		Cadence:     cadence,
		Whitelisted: true,
	}

	id, err := s.channels.Create(ctx, &channel)
	if err != nil {
		return nil, err
	}
	channel.ID = id

	s.logger.Info("channel registered",
		"channel_id", id,
		"external_id", channel.ExternalID,
		"name", channel.Name,
		"cadence", cadence,
	)

	return &channel, nil
}
