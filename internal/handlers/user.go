package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/nkiryanov/expensify/internal/apperrors"
	"github.com/nkiryanov/expensify/internal/handlers/render"
	"github.com/nkiryanov/expensify/internal/handlers/userctx"
	"github.com/nkiryanov/expensify/internal/logger"
)

func handleCurrentUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u := userctx.MustFromContext(r.Context())
		render.JSON(w, newUserResponse(u), "current user fetched successfully")
	}
}

func handleUpdateAccount(userService userService, logger logger.Logger) http.HandlerFunc {
	type request struct {
		NewFullName string `json:"newFullName" validate:"notblank"`
		NewEmail    string `json:"newEmail" validate:"notblank"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidateWithMessage[request](w, r, "All fields are required")
		if err != nil {
			return
		}

		u := userctx.MustFromContext(r.Context())

		updated, err := userService.UpdateAccount(r.Context(), u.ID, strings.TrimSpace(data.NewFullName), strings.TrimSpace(data.NewEmail))
		switch {
		case errors.Is(err, apperrors.ErrUserAlreadyExists):
			render.ServiceError(w, "email is already taken", http.StatusConflict)
		case errors.Is(err, apperrors.ErrUserNotFound):
			render.ServiceError(w, "user not found", http.StatusNotFound)
		case err != nil:
			logger.Error("can't update account", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		default:
			render.JSON(w, newUserResponse(updated), "Account details updated successfully")
		}
	}
}

func handleUpdateAvatar(userService userService, logger logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		upload, err := parseAvatarForm(r)
		if err != nil {
			render.FormDecodeError(w, err)
			return
		}
		defer r.MultipartForm.RemoveAll() // nolint:errcheck

		u := userctx.MustFromContext(r.Context())

		updated, err := userService.UpdateAvatar(r.Context(), u.ID, upload)
		switch {
		case errors.Is(err, apperrors.ErrAvatarRequired):
			render.FieldErrors(w, "avatar file is missing", map[string]string{"avatar": "This field is required"})
		case errors.Is(err, apperrors.ErrAvatarNotImage):
			render.FieldErrors(w, "Avatar has to be an image", map[string]string{"avatar": "Allowed png, jpg, jpeg, gif, webp"})
		case errors.Is(err, apperrors.ErrUserNotFound):
			render.ServiceError(w, "user not found", http.StatusNotFound)
		case err != nil:
			logger.Error("can't update avatar", "error", err)
			render.ServiceError(w, "Error while uploading avatar file", http.StatusInternalServerError)
		default:
			render.JSON(w, newUserResponse(updated), "avatar updated successfully")
		}
	}
}
