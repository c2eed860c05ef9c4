package driven

import (
	"context"
	"errors"
	"fmt"

	"github.com/ericfisherdev/authgateway/internal/domain/model"
)

// ErrNotFound is returned by store lookups when the requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrUnavailable wraps transport failures talking to a remote store:
// timeouts, refused connections and unreadable responses.
var ErrUnavailable = errors.New("storage unavailable")

// UpstreamError carries a non-success response from the remote storage service
// so it can be relayed to the caller verbatim.
type UpstreamError struct {
	StatusCode  int
	Body        []byte
	ContentType string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("storage responded %d: %s", e.StatusCode, e.Body)
}

// CredentialStore defines the driven port for credential persistence. The
// store only ever sees the stored form of a password; hashing or encryption
// happens in the application layer before Save and after Get.
type CredentialStore interface {
	// Get returns the credential record for id.
	// Returns ErrNotFound if the store reports no such record, or an
	// *UpstreamError for any other unsuccessful response.
	Get(ctx context.Context, id string) (model.Credential, error)

	// Has reports whether a record exists for id by response status alone:
	// not-found yields false and every other response yields true, whatever
	// its body. Only transport failures are returned as errors.
	Has(ctx context.Context, id string) (bool, error)

	// Save upserts the credential record. Unsuccessful responses are
	// returned as *UpstreamError.
	Save(ctx context.Context, cred model.Credential) error

	// Delete removes the credential record for id. Unsuccessful responses
	// (including not-found) are returned as *UpstreamError.
	Delete(ctx context.Context, id string) error
}
