package controllers

import (
	"net/http"

	"github.com/valkyrie-fleet/srp-backend/api/middleware"
	"github.com/valkyrie-fleet/srp-backend/api/responses"
	"github.com/valkyrie-fleet/srp-backend/api/validators"
	"github.com/valkyrie-fleet/srp-backend/internal/divisions"
	"github.com/valkyrie-fleet/srp-backend/internal/permissions"
	"github.com/valkyrie-fleet/srp-backend/pkg/logger"
)

type divisionCreateBody struct {
	Name string `json:"name" validate:"required"`
}

func CreateDivision(service divisions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body divisionCreateBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		division, err := service.Create(r.Context(), middleware.UserFromContext(r.Context()), body.Name)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, division)
	}
}

func GetDivision(service divisions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseURLUUID(r, "divisionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		detail, err := service.Get(r.Context(), middleware.UserFromContext(r.Context()), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

func ListDivisions(service divisions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		listed, err := service.List(r.Context(), middleware.UserFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, listed)
	}
}

type grantBody struct {
	GranteeType string `json:"grantee_type" validate:"required"`
	GranteeID   string `json:"grantee_id" validate:"required,uuid"`
	Type        string `json:"type" validate:"required"`
}

func GrantDivisionPermission(service divisions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		input, err := parseGrantInput(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		perm, err := service.GrantPermission(r.Context(), middleware.UserFromContext(r.Context()), *input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, perm)
	}
}

func RevokeDivisionPermission(service divisions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		input, err := parseGrantInput(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := service.RevokePermission(r.Context(), middleware.UserFromContext(r.Context()), *input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "revoked"})
	}
}

func parseGrantInput(r *http.Request) (*permissions.GrantInput, error) {
	divisionID, err := validators.ParseURLUUID(r, "divisionId")
	if err != nil {
		return nil, err
	}

	var body grantBody
	if err := validators.DecodeJSONBody(r, &body); err != nil {
		return nil, err
	}
	return permissions.ParseGrantInput(divisionID, body.GranteeType, body.GranteeID, body.Type)
}
