package controllers

import (
	"net/http"

	"github.com/valkyrie-fleet/srp-backend/api/middleware"
	"github.com/valkyrie-fleet/srp-backend/api/responses"
	"github.com/valkyrie-fleet/srp-backend/api/validators"
	"github.com/valkyrie-fleet/srp-backend/internal/pilots"
	"github.com/valkyrie-fleet/srp-backend/internal/users"
	"github.com/valkyrie-fleet/srp-backend/pkg/logger"
)

func Me(service users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		profile, err := service.Profile(r.Context(), middleware.UserFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, profile)
	}
}

func ClaimPilot(service pilots.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input pilots.ClaimInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		pilot, err := service.Claim(r.Context(), middleware.UserFromContext(r.Context()), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, pilot)
	}
}

func ListMyPilots(service pilots.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		listed, err := service.ListByUser(r.Context(), middleware.UserFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, listed)
	}
}
