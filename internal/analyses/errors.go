package analyses

import "summarize-backend/internal/shared/apperr"

func errNotFound() error {
	return apperr.New(apperr.KindNotFound, "analysis not found", nil)
}

func errForbidden() error {
	return apperr.New(apperr.KindForbidden, "analysis belongs to another user", nil)
}
