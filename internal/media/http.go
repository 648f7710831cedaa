package media

import (
	"context"
	"net/http"

	httperrors "github.com/gokatarajesh/theory-exam/pkg/http/errors"
)

// SourceResolver is satisfied by *Resolver.
type SourceResolver interface {
	Resolve(ctx context.Context, name string) (Source, bool)
}

// Handler serves GET /v1/media/{name} with the resolved source.
func Handler(resolver SourceResolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		src, ok := resolver.Resolve(r.Context(), r.PathValue("name"))
		if !ok {
			httperrors.RespondNotFound(w, httperrors.ErrCodeMediaNotFound, "Media not available")
			return
		}
		httperrors.RespondJSON(w, http.StatusOK, src)
	}
}
