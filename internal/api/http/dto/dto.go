// Package dto holds the request/response shapes for the control HTTP
// surface (spec.md §6.3), separated from the domain types the same way
// the teacher repo keeps channelmodel request DTOs out of its domain
// package.
package dto

import "github.com/edirooss/airportsim/pkg/jsonx"

// WeatherReq is the body of POST /api/crisis/weather. The handler decodes it
// with jsonx.ParseStrictJSONBody (strict shape: no unknown fields) then runs
// binding.Validator.ValidateStruct over the result, so the tags below are
// actually evaluated against gin's embedded go-playground/validator.
type WeatherReq struct {
	Severity   string  `json:"severity" binding:"required,oneof=CLEAR LIGHT MODERATE SEVERE EXTREME"`
	Window     float64 `json:"window" binding:"gte=0,lte=1"`
	GroundStop bool    `json:"ground_stop"`
}

// WeightsReq is the body of PATCH /api/scheduler/weights. Every field is a
// jsonx.Field so the handler can tell "omitted" from "explicitly zero" and
// patch only what the caller sent (spec.md §6.3's PATCH semantics).
type WeightsReq struct {
	Alpha jsonx.Field[float64] `json:"alpha"`
	Beta  jsonx.Field[float64] `json:"beta"`
	Gamma jsonx.Field[float64] `json:"gamma"`
	Delta jsonx.Field[float64] `json:"delta"`
	Eps   jsonx.Field[float64] `json:"eps"`
}

// CooldownReq is the body of POST /api/scheduler/cooldown, used by tests
// and operators to make the learning engine skip committing weight shifts
// for its next N observations while still updating its EMAs (spec.md
// §4.12.1's cooldown knob). Like WeatherReq, its
// binding tag is evaluated via binding.Validator.ValidateStruct after the
// strict-shape decode.
type CooldownReq struct {
	Rounds int `json:"rounds" binding:"gte=0"`
}

// WeightsResp echoes the scheduler's current PIS weight vector.
type WeightsResp struct {
	Alpha float64 `json:"alpha"`
	Beta  float64 `json:"beta"`
	Gamma float64 `json:"gamma"`
	Delta float64 `json:"delta"`
	Eps   float64 `json:"eps"`
}
