package models

// Requests for dashboard HTTP endpoints. Defined in domain for consistency and reuse.

type PredictRequest struct {
	Model  string            `json:"model" form:"model" default:"RandomForest" validate:"oneof=LinearRegression RandomForest"`
	Open   float64           `json:"open" form:"open" validate:"gte=0"`
	High   float64           `json:"high" form:"high" validate:"gte=0"`
	Low    float64           `json:"low" form:"low" validate:"gte=0"`
	Volume float64           `json:"volume" form:"volume" validate:"gte=0"`
	Year   int               `json:"year" form:"year" validate:"gte=0,lte=9999"`
	Month  int               `json:"month" form:"month" validate:"gte=0,lte=12"`
	Day    int               `json:"day" form:"day" validate:"gte=0,lte=31"`
	Extra  map[string]string `json:"extra,omitempty"`
}

// ToInput converts the validated request into a domain input.
func (r *PredictRequest) ToInput() PredictInput {
	return PredictInput{
		Model:  ModelKind(r.Model),
		Open:   r.Open,
		High:   r.High,
		Low:    r.Low,
		Volume: r.Volume,
		Year:   r.Year,
		Month:  r.Month,
		Day:    r.Day,
		Extra:  r.Extra,
	}
}

type PricesRequest struct {
	From  string `query:"from" json:"from"`
	To    string `query:"to" json:"to"`
	Limit int    `query:"limit" json:"limit" default:"0" validate:"gte=0,lte=100000"`
}
