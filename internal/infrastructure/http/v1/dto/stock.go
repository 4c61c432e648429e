package dto

import (
	"stockledger/internal/domain/catalogs/unit"
	"stockledger/internal/domain/registers/stock"
)

// --- Response DTOs for stock queries ---

// StockResponse is the on-hand quantity of an article in one unit.
type StockResponse struct {
	ArticleID   int64   `json:"articleId"`
	UnitID      int64   `json:"unitId"`
	WarehouseID *int64  `json:"warehouseId"`
	Quantity    float64 `json:"quantity"`
}

// FromStockQuery builds the response for a reconciled query.
func FromStockQuery(q stock.Query, b stock.Breakdown) StockResponse {
	return StockResponse{
		ArticleID:   q.ArticleID,
		UnitID:      q.DisplayUnitID,
		WarehouseID: q.WarehouseID,
		Quantity:    b.Quantity.InexactFloat64(),
	}
}

// UnitResponse describes a unit and its coefficient to the base unit.
type UnitResponse struct {
	ID          int64   `json:"id"`
	Code        string  `json:"code"`
	Label       string  `json:"label"`
	Level       *int    `json:"level,omitempty"`
	Coefficient float64 `json:"coefficient"`
}

// FromUnit converts a resolved unit.
func FromUnit(u unit.Unit) UnitResponse {
	return UnitResponse{
		ID:          u.ID,
		Code:        u.Code,
		Label:       u.Label,
		Level:       u.Level,
		Coefficient: u.Coefficient.InexactFloat64(),
	}
}

// UnitLevelResponse is the stock expressed in one unit.
type UnitLevelResponse struct {
	Unit     UnitResponse `json:"unit"`
	Quantity float64      `json:"quantity"`
}

// UnitLevelsResponse lists the stock of an article in each of its units.
type UnitLevelsResponse struct {
	ArticleID   int64               `json:"articleId"`
	WarehouseID *int64              `json:"warehouseId"`
	Items       []UnitLevelResponse `json:"items"`
}

// FromLevels converts service levels.
func FromLevels(articleID int64, warehouseID *int64, levels []stock.Level) UnitLevelsResponse {
	items := make([]UnitLevelResponse, len(levels))
	for i, l := range levels {
		items[i] = UnitLevelResponse{
			Unit:     FromUnit(l.Unit),
			Quantity: l.Quantity.InexactFloat64(),
		}
	}
	return UnitLevelsResponse{ArticleID: articleID, WarehouseID: warehouseID, Items: items}
}

// ContributionResponse is one movement kind's signed sum.
type ContributionResponse struct {
	Kind     string  `json:"kind"`
	Quantity float64 `json:"quantity"`
	Failed   bool    `json:"failed,omitempty"`
}

// UnitTotalResponse is one unit's share of the reservoir.
type UnitTotalResponse struct {
	Unit          UnitResponse           `json:"unit"`
	Contributions []ContributionResponse `json:"contributions"`
	Own           float64                `json:"own"`
	Base          float64                `json:"base"`
}

// BreakdownResponse exposes every intermediate figure of a reconciliation.
type BreakdownResponse struct {
	StockResponse
	Units              []UnitTotalResponse `json:"units"`
	TotalBase          float64             `json:"totalBase"`
	DisplayCoefficient float64             `json:"displayCoefficient"`
	Raw                float64             `json:"raw"`
}

// FromBreakdown converts a service breakdown.
func FromBreakdown(b stock.Breakdown) BreakdownResponse {
	units := make([]UnitTotalResponse, len(b.Units))
	for i, t := range b.Units {
		contributions := make([]ContributionResponse, len(t.Contributions))
		for j, c := range t.Contributions {
			contributions[j] = ContributionResponse{
				Kind:     string(c.Kind),
				Quantity: c.Quantity.InexactFloat64(),
				Failed:   c.Failed,
			}
		}
		units[i] = UnitTotalResponse{
			Unit:          FromUnit(t.Unit),
			Contributions: contributions,
			Own:           t.Own.InexactFloat64(),
			Base:          t.Base.InexactFloat64(),
		}
	}

	return BreakdownResponse{
		StockResponse:      FromStockQuery(b.Query, b),
		Units:              units,
		TotalBase:          b.TotalBase.InexactFloat64(),
		DisplayCoefficient: b.DisplayCoefficient.InexactFloat64(),
		Raw:                b.Raw.InexactFloat64(),
	}
}
