package settings

import (
	"fmt"
	"net/http"
	"net/url"

	formcodec "github.com/go-playground/form/v4"

	"github.com/runningcoach/backend/lib/myerrors"
)

type Zone struct {
	Min  int    `json:"min"`
	Max  int    `json:"max"`
	Name string `json:"name"`
}

type Settings struct {
	UID        string          `json:"-"`
	MaxHR      int             `json:"max_hr"`
	FitnessAge int             `json:"fitness_age,omitempty"`
	ActualAge  int             `json:"actual_age,omitempty"`
	HRZones    map[string]Zone `json:"hr_zones" datastore:",noindex"`
}

// UpdateRequest carries the fields of the settings form. Zero means
// "leave as is".
type UpdateRequest struct {
	MaxHR      int `form:"maxHR"`
	FitnessAge int `form:"fitnessAge"`
	ActualAge  int `form:"actualAge"`
}

func NewUpdateFromRequest(r *http.Request) (UpdateRequest, error) {
	err := r.ParseForm()
	if err != nil {
		return UpdateRequest{}, myerrors.NewInvalidInputError(err)
	}
	return newUpdateFromValues(r.Form)
}

func newUpdateFromValues(values url.Values) (UpdateRequest, error) {
	update := UpdateRequest{}
	err := formcodec.NewDecoder().Decode(&update, values)
	if err != nil {
		return update, myerrors.NewInvalidInputError(fmt.Errorf("error decoding form: %s", err))
	}

	return update, nil
}
