package controllers

import (
	"net/http"

	"github.com/valkyrie-fleet/srp-backend/api/middleware"
	"github.com/valkyrie-fleet/srp-backend/api/responses"
	"github.com/valkyrie-fleet/srp-backend/api/validators"
	"github.com/valkyrie-fleet/srp-backend/internal/modifiers"
	"github.com/valkyrie-fleet/srp-backend/pkg/logger"
)

func AddModifier(service modifiers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID, err := validators.ParseURLInt64(r, "requestId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var input modifiers.AddInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		modifier, err := service.Add(r.Context(), middleware.UserFromContext(r.Context()), requestID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, modifier)
	}
}

func VoidModifier(service modifiers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		modifierID, err := validators.ParseURLInt64(r, "modifierId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		modifier, err := service.Void(r.Context(), middleware.UserFromContext(r.Context()), modifierID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, modifier)
	}
}

func UnvoidModifier(service modifiers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		modifierID, err := validators.ParseURLInt64(r, "modifierId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		modifier, err := service.Unvoid(r.Context(), middleware.UserFromContext(r.Context()), modifierID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, modifier)
	}
}
