// Package issuing defines the outbound ports for reward-currency and
// credential issuance. The ledger computes amounts and authorizations;
// actual minting is an external collaborator invoked only after all
// validation succeeds.
package issuing

import (
	"context"

	"github.com/academy-hub/academy-ledger/internal/domain/shared"
)

// MintAuthorization scopes a mint call to the active season's currency.
// The issuer must reject a mint whose currency no longer matches.
type MintAuthorization struct {
	Season uint16
	Mint   shared.MintID
}

// RewardIssuer mints season reward currency to a recipient. Called only
// after every validation of the operation has passed; a failed mint aborts
// the whole request.
type RewardIssuer interface {
	// Mint issues amount units of the authorized season currency to the
	// recipient. A zero amount is the caller's no-op; implementations are
	// never called with amount == 0.
	Mint(ctx context.Context, recipient shared.LearnerID, amount uint32, auth MintAuthorization) error
}

// CredentialSpec describes the non-transferable track credential to create
// or upgrade.
type CredentialSpec struct {
	Owner       shared.LearnerID
	TrackID     uint16
	TrackLevel  shared.TrackLevel
	Name        string
	MetadataURI string
}

// CredentialResult reports what the issuer did.
type CredentialResult struct {
	// AssetID identifies the credential asset, stable across upgrades.
	AssetID string

	// Created is true when a new credential was minted, false on upgrade.
	Created bool
}

// CredentialIssuer creates or upgrades non-transferable track credentials.
// One credential per (owner, track) that levels up in place, as opposed to
// one credential per course.
type CredentialIssuer interface {
	// CreateOrUpdate creates the credential when existingAsset is empty and
	// upgrades it in place otherwise.
	CreateOrUpdate(ctx context.Context, spec CredentialSpec, existingAsset string) (CredentialResult, error)
}
