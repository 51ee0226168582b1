package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/nkiryanov/expensify/internal/apperrors"
	"github.com/nkiryanov/expensify/internal/filestore"
	"github.com/nkiryanov/expensify/internal/handlers/render"
	"github.com/nkiryanov/expensify/internal/handlers/userctx"
	"github.com/nkiryanov/expensify/internal/logger"
	"github.com/nkiryanov/expensify/internal/service/user"
)

// Uploaded avatar over this size is kept on disk by net/http until the request ends
const maxMemoryForm = 10 << 20

func handleRegister(authService authService, logger logger.Logger) http.HandlerFunc {
	type request struct {
		FullName string `form:"fullName" validate:"notblank"`
		Username string `form:"userName" validate:"notblank"`
		Email    string `form:"email" validate:"notblank"`
		Password string `form:"password" validate:"notblank"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		upload, err := parseAvatarForm(r)
		if err != nil {
			render.FormDecodeError(w, err)
			return
		}
		// Temp files of the form are removed whatever the outcome
		defer r.MultipartForm.RemoveAll() // nolint:errcheck

		data := request{
			FullName: strings.TrimSpace(r.FormValue("fullName")),
			Username: strings.TrimSpace(r.FormValue("userName")),
			Email:    strings.TrimSpace(r.FormValue("email")),
			Password: r.FormValue("password"),
		}
		if err := render.ValidateWithMessage(w, "all fields are required", data); err != nil {
			return
		}

		u, err := authService.Register(r.Context(), user.CreateUserParams{
			FullName: data.FullName,
			Username: data.Username,
			Email:    data.Email,
			Password: data.Password,
			Avatar:   upload,
		})
		switch {
		case errors.Is(err, apperrors.ErrUserAlreadyExists):
			render.ServiceError(w, "User already exist with given email or userName", http.StatusConflict)
		case errors.Is(err, apperrors.ErrAvatarRequired):
			render.FieldErrors(w, "Avatar file is required", map[string]string{"avatar": "This field is required"})
		case errors.Is(err, apperrors.ErrAvatarNotImage):
			render.FieldErrors(w, "Avatar has to be an image", map[string]string{"avatar": "Allowed png, jpg, jpeg, gif, webp"})
		case err != nil:
			logger.Error("can't register user", "error", err)
			render.ServiceError(w, "something went wrong while registering the user", http.StatusInternalServerError)
		default:
			render.JSONWithStatus(w, newUserResponse(u), "user created successfully", http.StatusCreated)
		}
	}
}

func handleLogin(authService authService, logger logger.Logger) http.HandlerFunc {
	type request struct {
		Email    string `json:"email"`
		Username string `json:"userName"`
		Password string `json:"password" validate:"required"`
	}
	type response struct {
		User         userResponse `json:"user"`
		AccessToken  string       `json:"accessToken"`
		RefreshToken string       `json:"refreshToken"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		if strings.TrimSpace(data.Username) == "" && strings.TrimSpace(data.Email) == "" {
			render.FieldErrors(w, "username or email is required", map[string]string{
				"userName": "This field is required if email is not set",
				"email":    "This field is required if userName is not set",
			})
			return
		}

		u, pair, err := authService.Login(r.Context(), data.Username, data.Email, data.Password)
		switch {
		case errors.Is(err, apperrors.ErrUserNotFound):
			render.ServiceError(w, "user not found", http.StatusNotFound)
			return
		case errors.Is(err, apperrors.ErrInvalidCredentials):
			render.ServiceError(w, "password is incorrect", http.StatusUnauthorized)
			return
		case err != nil:
			logger.Error("can't login user", "error", err)
			render.ServiceError(w, "something went wrong while generating access and refresh token", http.StatusInternalServerError)
			return
		}

		authService.SetTokenPairToResponse(w, pair)
		render.JSON(w, response{
			User:         newUserResponse(u),
			AccessToken:  pair.Access.Value,
			RefreshToken: pair.Refresh.Value,
		}, "User logged in successfully")
	}
}

func handleLogout(authService authService, logger logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u := userctx.MustFromContext(r.Context())

		err := authService.Logout(r.Context(), u.ID)
		if err != nil && !errors.Is(err, apperrors.ErrUserNotFound) {
			logger.Error("can't logout user", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		authService.ClearTokens(w)
		render.JSON(w, empty{}, "User logged out")
	}
}

func handleTokenRefresh(authService authService, logger logger.Logger) http.HandlerFunc {
	type request struct {
		RefreshToken string `json:"refreshToken"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		refresh := authService.GetRefreshString(r)

		// Cookie wins, body is the fallback for clients without cookies
		if refresh == "" {
			var data request
			err := json.NewDecoder(r.Body).Decode(&data)
			if err != nil && !errors.Is(err, io.EOF) {
				render.DecodeError(w, err)
				return
			}
			refresh = data.RefreshToken
		}

		if refresh == "" {
			render.ServiceError(w, "unauthorized request", http.StatusUnauthorized)
			return
		}

		pair, err := authService.RefreshPair(r.Context(), refresh)
		switch {
		case errors.Is(err, apperrors.ErrRefreshTokenIsUsed):
			render.ServiceError(w, "refresh token is expired or used", http.StatusUnauthorized)
			return
		case errors.Is(err, apperrors.ErrTokenInvalid):
			render.ServiceError(w, "invalid token", http.StatusUnauthorized)
			return
		case err != nil:
			logger.Error("can't refresh tokens", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		authService.SetTokenPairToResponse(w, pair)
		render.JSON(w, newTokensResponse(pair), "token refreshed successfully")
	}
}

func handleChangePassword(authService authService, logger logger.Logger) http.HandlerFunc {
	type request struct {
		OldPassword string `json:"oldPassword" validate:"required"`
		NewPassword string `json:"newPassword" validate:"required"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		u := userctx.MustFromContext(r.Context())

		err = authService.ChangePassword(r.Context(), u.ID, data.OldPassword, data.NewPassword)
		switch {
		case errors.Is(err, apperrors.ErrInvalidCredentials):
			render.ServiceError(w, "password is incorrect", http.StatusBadRequest)
		case err != nil:
			logger.Error("can't change password", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		default:
			render.JSON(w, empty{}, "Password changed successfully")
		}
	}
}

// Parse multipart form and pick avatar file from it
// Nil upload if the form has no avatar
func parseAvatarForm(r *http.Request) (*filestore.Upload, error) {
	if err := r.ParseMultipartForm(maxMemoryForm); err != nil {
		return nil, err
	}

	file, header, err := r.FormFile("avatar")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return nil, nil
	case err != nil:
		return nil, err
	}

	return &filestore.Upload{
		Filename: header.Filename,
		Body:     file,
	}, nil
}
