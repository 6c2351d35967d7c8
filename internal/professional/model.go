package professional

import (
	"net/http"

	"github.com/RAVINDRA-NEGI/Service-Marketplace-Platform-sub000/internal/pkg/apperror"
)

var ErrNotFound = apperror.New(http.StatusNotFound, "professional not found")

// Professional is the read-only view of a service provider profile.
type Professional struct {
	ID     string
	UserID string
}
