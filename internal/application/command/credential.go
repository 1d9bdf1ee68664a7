package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/academy-hub/academy-ledger/internal/domain/issuing"
	"github.com/academy-hub/academy-ledger/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ISSUE CREDENTIAL COMMAND
// One credential per (learner, track) that upgrades in place: the first
// completed course in a track mints the asset, later completions re-point
// the same asset at the higher level.
// ══════════════════════════════════════════════════════════════════════════════

// IssueCredentialCommand contains the data to issue or upgrade a credential.
type IssueCredentialCommand struct {
	// Actor must match the backend signer.
	Actor string

	LearnerID string
	CourseID  string

	// Name and MetadataURI describe the credential asset.
	Name        string
	MetadataURI string

	Timestamp     time.Time
	CorrelationID string
}

// Validate validates the command.
func (c IssueCredentialCommand) Validate() error {
	if c.Actor == "" {
		return errors.New("issue_credential: actor is required")
	}
	if c.LearnerID == "" {
		return errors.New("issue_credential: learner_id is required")
	}
	if c.CourseID == "" {
		return errors.New("issue_credential: course_id is required")
	}
	return nil
}

// IssueCredentialResult contains the credential asset reference.
type IssueCredentialResult struct {
	LearnerID    string
	CourseID     string
	TrackID      uint16
	TrackLevel   uint8
	CredentialID string
	Created      bool
	IssuedAt     time.Time
}

// IssueCredentialHandler handles the IssueCredentialCommand.
type IssueCredentialHandler struct {
	store       Store
	publisher   shared.EventPublisher
	credentials issuing.CredentialIssuer
	clock       func() time.Time
}

// NewIssueCredentialHandler creates a new IssueCredentialHandler.
func NewIssueCredentialHandler(store Store, publisher shared.EventPublisher, credentials issuing.CredentialIssuer) *IssueCredentialHandler {
	return &IssueCredentialHandler{store: store, publisher: publisher, credentials: credentials, clock: time.Now}
}

// Handle executes the issue credential command. The issuer call happens
// inside the transaction: a failed issuance leaves the enrollment without a
// credential reference instead of pointing at nothing.
func (h *IssueCredentialHandler) Handle(ctx context.Context, cmd IssueCredentialCommand) (*IssueCredentialResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("issue_credential: validation failed: %w", err)
	}

	now := cmd.Timestamp
	if now.IsZero() {
		now = h.clock().UTC()
	}

	learnerID := shared.LearnerID(cmd.LearnerID)
	courseID := shared.CourseID(cmd.CourseID)

	var result IssueCredentialResult
	err := h.store.WithinTx(ctx, func(ctx context.Context, repos Repositories) error {
		cfg, err := repos.Platform.Get(ctx)
		if err != nil {
			return err
		}
		if cfg.BackendSigner != cmd.Actor {
			return shared.ErrUnauthorized
		}

		crs, err := repos.Courses.GetByID(ctx, courseID)
		if err != nil {
			return err
		}

		enr, err := repos.Enrollments.Get(ctx, learnerID, courseID)
		if err != nil {
			if shared.IsNotFound(err) {
				return shared.ErrNotEnrolled
			}
			return err
		}
		if !enr.IsCompleted() {
			return shared.ErrCourseNotFinalized
		}

		existing := enr.CredentialAsset
		issued, err := h.credentials.CreateOrUpdate(ctx, issuing.CredentialSpec{
			Owner:       learnerID,
			TrackID:     crs.TrackID,
			TrackLevel:  crs.TrackLevel,
			Name:        cmd.Name,
			MetadataURI: cmd.MetadataURI,
		}, existing)
		if err != nil {
			return fmt.Errorf("%w: %w", shared.ErrCredentialMintFailed, err)
		}

		if err := enr.AttachCredential(issued.AssetID); err != nil {
			return err
		}
		if err := repos.Enrollments.Update(ctx, enr); err != nil {
			return err
		}

		result = IssueCredentialResult{
			LearnerID:    cmd.LearnerID,
			CourseID:     cmd.CourseID,
			TrackID:      crs.TrackID,
			TrackLevel:   uint8(crs.TrackLevel),
			CredentialID: issued.AssetID,
			Created:      issued.Created,
			IssuedAt:     now,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	event := shared.NewCredentialIssuedEvent(
		cmd.LearnerID, result.TrackID, result.CredentialID, result.Created, !result.Created, result.TrackLevel,
	)
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	_ = h.publisher.Publish(event)

	return &result, nil
}
