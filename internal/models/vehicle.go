package models

// VehicleStatusAvailable is the only catalog status that accepts bids.
const VehicleStatusAvailable = "available"

// Vehicle is the catalog's read model. The engine never writes it.
type Vehicle struct {
	ID                    string   `json:"id" gorm:"type:uuid;primaryKey"`
	OwnerID               string   `json:"ownerId" gorm:"type:uuid;index"`
	Title                 string   `json:"title"`
	Images                []string `json:"images" gorm:"serializer:json"`
	PricePerDay           float64  `json:"pricePerDay"`
	OutstationPricePerDay float64  `json:"outstationPricePerDay"`
	Status                string   `json:"status"`
}

func (Vehicle) TableName() string {
	return "vehicles"
}

// FloorPrice is the minimum acceptable per-day bid for the requested mode.
func (v *Vehicle) FloorPrice(outstation bool) float64 {
	if outstation {
		return v.OutstationPricePerDay
	}
	return v.PricePerDay
}

func (v *Vehicle) IsAvailable() bool {
	return v.Status == VehicleStatusAvailable
}
