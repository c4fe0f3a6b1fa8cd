package placements

import "errors"

// Validation failures, detected before any read or write.
var (
	ErrContactRequired      = errors.New("a foster contact must be selected")
	ErrEmailRequired        = errors.New("an adopter email is required")
	ErrConfirmationRequired = errors.New("confirmation required")
)

// Conflicts with the dog's or the contact's current state. Nothing is written.
var (
	ErrAlreadyInFoster    = errors.New("dog is already in foster care")
	ErrAlreadyAdopted     = errors.New("dog has already been adopted")
	ErrNoOrganization     = errors.New("dog is not held by an organization")
	ErrContactAtCapacity  = errors.New("foster contact has no free place")
	ErrContactNotEligible = errors.New("foster contact cannot take dogs right now")
	ErrTransferPhase      = errors.New("no adopter is awaiting confirmation")
	ErrTransferPending    = errors.New("an adopter is already awaiting confirmation; cancel the transfer to look up another email")
)

// Lookups that found nothing.
var (
	ErrDogNotFound     = errors.New("dog not found")
	ErrContactNotFound = errors.New("foster contact not found")
	ErrAdopterNotFound = errors.New("no account matches this email")
	ErrNotInFoster     = errors.New("dog is not in foster care")
)

// Kind groups workflow errors by how callers should react.
type Kind int

const (
	// KindBackend is any storage failure. The operation's transaction was rolled back.
	KindBackend Kind = iota
	KindValidation
	KindConflict
	KindNotFound
)

var classes = []struct {
	err  error
	kind Kind
	code string
}{
	{ErrContactRequired, KindValidation, "contact_required"},
	{ErrEmailRequired, KindValidation, "email_required"},
	{ErrConfirmationRequired, KindValidation, "confirmation_required"},
	{ErrAlreadyInFoster, KindConflict, "already_in_foster"},
	{ErrAlreadyAdopted, KindConflict, "already_adopted"},
	{ErrNoOrganization, KindConflict, "no_organization"},
	{ErrContactAtCapacity, KindConflict, "contact_at_capacity"},
	{ErrContactNotEligible, KindConflict, "contact_not_eligible"},
	{ErrTransferPhase, KindConflict, "transfer_not_confirmable"},
	{ErrTransferPending, KindConflict, "transfer_pending"},
	{ErrDogNotFound, KindNotFound, "dog_not_found"},
	{ErrContactNotFound, KindNotFound, "contact_not_found"},
	{ErrAdopterNotFound, KindNotFound, "adopter_not_found"},
	{ErrNotInFoster, KindNotFound, "not_in_foster"},
}

// Classify returns the kind and stable reason code of err.
func Classify(err error) (Kind, string) {
	for _, c := range classes {
		if errors.Is(err, c.err) {
			return c.kind, c.code
		}
	}
	return KindBackend, "backend_failure"
}
