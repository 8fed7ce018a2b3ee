package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/valkyrie-fleet/srp-backend/api/middleware"
	"github.com/valkyrie-fleet/srp-backend/api/responses"
	"github.com/valkyrie-fleet/srp-backend/api/validators"
	"github.com/valkyrie-fleet/srp-backend/internal/requests"
	"github.com/valkyrie-fleet/srp-backend/pkg/enums"
	pkgerrors "github.com/valkyrie-fleet/srp-backend/pkg/errors"
	"github.com/valkyrie-fleet/srp-backend/pkg/logger"
	"github.com/valkyrie-fleet/srp-backend/pkg/pagination"
)

func SubmitRequest(service requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input requests.SubmitInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		detail, err := service.Submit(r.Context(), middleware.UserFromContext(r.Context()), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, detail)
	}
}

func GetRequest(service requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseURLInt64(r, "requestId")
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

func ListRequests(service requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		input, err := parseListInput(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := service.List(r.Context(), middleware.UserFromContext(r.Context()), *input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

type actionBody struct {
	Type string `json:"type" validate:"required"`
	Note string `json:"note"`
}

func ActOnRequest(service requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseURLInt64(r, "requestId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body actionBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actionType, err := enums.ParseActionType(body.Type)
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid action type"))
			return
		}

		detail, err := service.Act(r.Context(), middleware.UserFromContext(r.Context()), id, actionType, body.Note)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

type payoutBody struct {
	Value decimal.Decimal `json:"value" validate:"required"`
}

func SetBasePayout(service requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseURLInt64(r, "requestId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body payoutBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		detail, err := service.SetBasePayout(r.Context(), middleware.UserFromContext(r.Context()), id, body.Value)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

type divisionChangeBody struct {
	DivisionID uuid.UUID `json:"division_id" validate:"required"`
}

func ChangeRequestDivision(service requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseURLInt64(r, "requestId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body divisionChangeBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		detail, err := service.ChangeDivision(r.Context(), middleware.UserFromContext(r.Context()), id, body.DivisionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

func parseListInput(r *http.Request) (*requests.ListInput, error) {
	divisionIDs, err := validators.QueryUUIDs(r, "division_id")
	if err != nil {
		return nil, err
	}

	var statuses []enums.ActionType
	for _, raw := range validators.QueryValues(r, "status") {
		status, err := enums.ParseActionType(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		if !status.IsStatus() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "comment is not a request status")
		}
		statuses = append(statuses, status)
	}

	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return nil, err
	}

	return &requests.ListInput{
		DivisionIDs:      divisionIDs,
		Statuses:         statuses,
		PilotNames:       validators.QueryValues(r, "pilot"),
		CorporationNames: validators.QueryValues(r, "corporation"),
		AllianceNames:    validators.QueryValues(r, "alliance"),
		ShipTypes:        validators.QueryValues(r, "ship"),
		SystemNames:      validators.QueryValues(r, "system"),
		RegionNames:      validators.QueryValues(r, "region"),
		Pagination: pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		},
	}, nil
}
