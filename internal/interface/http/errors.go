package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/student-store/internal/application"
	"github.com/oksasatya/student-store/internal/domain/errs"
	"github.com/oksasatya/student-store/pkg/response"
	"github.com/oksasatya/student-store/pkg/validation"
)

// writeError maps service errors onto the response envelope.
func writeError(c *gin.Context, logger *logrus.Logger, err error) {
	var verr *application.ValidationError
	switch {
	case errors.As(err, &verr):
		response.Error[any](c, http.StatusBadRequest, "validation failed", response.ErrorBody{Code: "validation", Details: verr.Fields})
	case errors.Is(err, errs.ErrValidation):
		response.Error[any](c, http.StatusBadRequest, "validation failed", response.ErrorBody{Code: "validation"})
	case errors.Is(err, errs.ErrDecode):
		response.Error[any](c, http.StatusBadRequest, "unsupported or corrupt image", response.ErrorBody{Code: "decode"})
	case errors.Is(err, errs.ErrNotFound):
		response.Error[any](c, http.StatusNotFound, "not found", response.ErrorBody{Code: "not_found"})
	case errors.Is(err, errs.ErrUnauthorized):
		response.Error[any](c, http.StatusUnauthorized, "unauthorized", response.ErrorBody{Code: "unauthorized"})
	case errors.Is(err, errs.ErrInactiveUser):
		response.Error[any](c, http.StatusBadRequest, "inactive user", response.ErrorBody{Code: "inactive_user"})
	case errors.Is(err, errs.ErrUpload):
		logger.WithError(err).WithField("request_id", c.GetString("request_id")).Error("image upload failed")
		response.Error[any](c, http.StatusInternalServerError, "image upload failed", response.ErrorBody{Code: "upload"})
	default:
		logger.WithError(err).WithField("request_id", c.GetString("request_id")).Error("request failed")
		response.Error[any](c, http.StatusInternalServerError, "internal server error", response.ErrorBody{Code: "internal"})
	}
}

func bindError(c *gin.Context, err error) {
	response.Error[any](c, http.StatusBadRequest, "invalid payload", response.ErrorBody{Code: "validation", Details: validation.ToDetails(err)})
}
