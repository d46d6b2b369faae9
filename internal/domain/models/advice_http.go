package models

// Request for the advice HTTP endpoint. Defined in domain for consistency and reuse.

type AdviceRequest struct {
	Commodity   string  `query:"commodity" json:"commodity" validate:"required"`
	Market      string  `query:"market" json:"market" validate:"required"`
	QuantityQtl float64 `query:"quantity_qtl" json:"quantity_qtl" default:"1" validate:"gt=0,lte=10000"`
	HorizonDays int     `query:"horizon_days" json:"horizon_days" default:"7" validate:"gte=1,lte=30"`
	StorageDays int     `query:"storage_days" json:"storage_days" default:"7" validate:"gte=1,lte=90"`
}
