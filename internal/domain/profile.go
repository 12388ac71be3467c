package domain

import "context"

// Profile holds the user attributes used to pre-fill a measurement workflow.
type Profile struct {
	UserID int64 `json:"userId"`
	Age    int   `json:"age"`
	Sex    Sex   `json:"sex"`
}

// ProfileRepository is the port for profile persistence. GetProfile
// returns nil, nil when the user has not stored a profile.
type ProfileRepository interface {
	GetProfile(ctx context.Context, userID int64) (*Profile, error)
	SaveProfile(ctx context.Context, p Profile) error
}

// Persistence is the per-user view of stored records that workflows and the
// history aggregator talk to. Observe streams deliver the current
// newest-first list first and a fresh list after every change; they close
// when ctx is done.
type Persistence interface {
	SaveComposition(ctx context.Context, rec CompositionRecord) (int64, error)
	SaveWeight(ctx context.Context, rec WeightRecord) (int64, error)
	DeleteComposition(ctx context.Context, id int64) error
	DeleteWeight(ctx context.Context, id int64) error
	ObserveCompositions(ctx context.Context) <-chan []CompositionRecord
	ObserveWeights(ctx context.Context) <-chan []WeightRecord
	GetProfile(ctx context.Context) (*Profile, error)
}
