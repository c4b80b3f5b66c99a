package pairing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"choreboard/internal/authz"
	"choreboard/internal/models"
)

var (
	// ErrInvalidPairingCode means no active code matches, or the code
	// was already consumed, cleared or expired. The user can re-enter.
	ErrInvalidPairingCode = errors.New("invalid pairing code")
	// ErrDeviceAlreadyPaired means this device's identity is already
	// bound to another child profile.
	ErrDeviceAlreadyPaired = errors.New("device already paired to another profile")
	// ErrChildNotFound means the referenced child profile does not exist.
	ErrChildNotFound = errors.New("child profile not found")
	// ErrCodeCollision is returned by stores when writing a code that is
	// already set on another profile; issuance retries with a new code.
	ErrCodeCollision = errors.New("pairing code already in use")
)

// ChildStore is the profile-store surface the protocol needs. BindDevice
// must be an atomic conditional update: it binds deviceID and clears the
// code only if the code is still set and no device is bound, and fails
// with ErrDeviceAlreadyPaired if deviceID is bound to a different
// profile. SetPairingCode must fail with ErrCodeCollision if the code is
// set on another profile.
type ChildStore interface {
	ChildByID(ctx context.Context, id string) (*models.ChildProfile, error)
	ChildByActiveCode(ctx context.Context, code string, now time.Time) (*models.ChildProfile, error)
	SetPairingCode(ctx context.Context, childID, code string, issuedAt, expiresAt time.Time) error
	ClearPairingCode(ctx context.Context, childID string) error
	BindDevice(ctx context.Context, childID, code, deviceID string, now time.Time) (*models.ChildProfile, error)
}

// DeviceIdentity is the identity-service surface for ephemeral device
// accounts.
type DeviceIdentity interface {
	// CreateEphemeralAccount mints the durable device identity for this
	// installation and returns it with its bearer token.
	CreateEphemeralAccount(ctx context.Context) (*models.Account, string, error)
	// AccountForDeviceToken resolves a previously issued token; an
	// invalid or unknown token yields (nil, nil).
	AccountForDeviceToken(ctx context.Context, token string) (*models.Account, error)
	// ActivateSession surfaces the account as the active session.
	ActivateSession(acct *models.Account)
	// DiscardSession drops any partially established session for the
	// account without destroying the account itself.
	DiscardSession(acct *models.Account)
}

// SnapshotCache persists the paired child profile on the device so
// identity can be resolved on restart before the session observer fires.
type SnapshotCache interface {
	StoreChildSnapshot(child *models.ChildProfile)
}

// RedeemResult is a successful code redemption: the bound profile and
// the device token the installation must keep.
type RedeemResult struct {
	Child       *models.ChildProfile
	DeviceToken string
}

// Protocol orchestrates pairing-code issuance, redemption and
// revocation for child profiles.
type Protocol struct {
	store   ChildStore
	devices DeviceIdentity
	cache   SnapshotCache
	gen     *CodeGenerator
	codeTTL time.Duration
	now     func() time.Time
}

// maxIssueAttempts bounds the retry loop on code collisions.
const maxIssueAttempts = 10

// NewProtocol wires a pairing protocol. cache may be nil when the
// caller has no device-local storage.
func NewProtocol(store ChildStore, devices DeviceIdentity, cache SnapshotCache, gen *CodeGenerator, codeTTL time.Duration) *Protocol {
	return &Protocol{
		store:   store,
		devices: devices,
		cache:   cache,
		gen:     gen,
		codeTTL: codeTTL,
		now:     time.Now,
	}
}

// IssueCode generates a fresh one-time code for the child and stores it,
// replacing any prior code. Only the owning parent may issue. Codes are
// unique among all currently set codes; on collision a new code is
// generated.
func (p *Protocol) IssueCode(ctx context.Context, ident authz.Identity, childID string) (string, error) {
	child, err := p.store.ChildByID(ctx, childID)
	if err != nil {
		return "", fmt.Errorf("failed to load child profile: %w", err)
	}
	if child == nil {
		return "", ErrChildNotFound
	}
	if err := authz.CheckChildOwnership(ident, child); err != nil {
		return "", err
	}

	issuedAt := p.now()
	expiresAt := issuedAt.Add(p.codeTTL)

	for attempt := 0; attempt < maxIssueAttempts; attempt++ {
		code, err := p.gen.Generate()
		if err != nil {
			return "", fmt.Errorf("failed to generate pairing code: %w", err)
		}
		err = p.store.SetPairingCode(ctx, childID, code, issuedAt, expiresAt)
		if errors.Is(err, ErrCodeCollision) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to store pairing code: %w", err)
		}
		return code, nil
	}
	return "", fmt.Errorf("could not allocate a unique pairing code after %d attempts", maxIssueAttempts)
}

// RedeemCode binds the calling device to the child profile carrying the
// code. The supplied deviceToken, if any, identifies a previously issued
// ephemeral account to reuse; otherwise a new one is created. On any
// failure the target profile is left untouched and the device session is
// discarded rather than left as an orphaned anonymous credential.
func (p *Protocol) RedeemCode(ctx context.Context, deviceToken, rawCode string) (*RedeemResult, error) {
	code := NormalizeCode(rawCode)
	if len(code) != CodeLength {
		return nil, ErrInvalidPairingCode
	}

	// Obtain or create the installation's ephemeral account. This is
	// the durable device identity from here on.
	var acct *models.Account
	if deviceToken != "" {
		existing, err := p.devices.AccountForDeviceToken(ctx, deviceToken)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve device token: %w", err)
		}
		acct = existing
	}
	if acct == nil {
		created, token, err := p.devices.CreateEphemeralAccount(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create device account: %w", err)
		}
		acct = created
		deviceToken = token
	}

	child, err := p.store.ChildByActiveCode(ctx, code, p.now())
	if err != nil {
		p.devices.DiscardSession(acct)
		return nil, fmt.Errorf("failed to look up pairing code: %w", err)
	}
	if child == nil {
		p.devices.DiscardSession(acct)
		return nil, ErrInvalidPairingCode
	}

	// Atomic check-then-bind: the store rejects a device bound
	// elsewhere and a code that was consumed or replaced since the
	// lookup. Concurrent redemptions of one code get exactly one winner.
	bound, err := p.store.BindDevice(ctx, child.ID, code, acct.ID, p.now())
	if err != nil {
		p.devices.DiscardSession(acct)
		if errors.Is(err, ErrInvalidPairingCode) || errors.Is(err, ErrDeviceAlreadyPaired) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to bind device: %w", err)
	}

	if p.cache != nil {
		p.cache.StoreChildSnapshot(bound)
	}
	p.devices.ActivateSession(acct)

	return &RedeemResult{Child: bound, DeviceToken: deviceToken}, nil
}

// ClearCode revokes the child's unused pairing code. Only the owning
// parent may clear.
func (p *Protocol) ClearCode(ctx context.Context, ident authz.Identity, childID string) error {
	child, err := p.store.ChildByID(ctx, childID)
	if err != nil {
		return fmt.Errorf("failed to load child profile: %w", err)
	}
	if child == nil {
		return ErrChildNotFound
	}
	if err := authz.CheckChildOwnership(ident, child); err != nil {
		return err
	}
	if err := p.store.ClearPairingCode(ctx, childID); err != nil {
		return fmt.Errorf("failed to clear pairing code: %w", err)
	}
	return nil
}
