package service

import (
	"context"

	"github.com/executive-war-room/internal/domain/activity"
)

// RecordingService records stream activities in the activity store
type RecordingService interface {
	Record(ctx context.Context, a *activity.Activity) error
}
