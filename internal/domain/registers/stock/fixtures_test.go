package stock

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"stockledger/internal/domain/catalogs/unit"
)

// memRow is one movement line as the legacy tables would hold it.
type memRow struct {
	Table      string
	ArticleID  int64
	UnitID     int64
	UnitCode   string
	Warehouses map[string]int64 // column -> warehouse id
	Qty        decimal.Decimal

	Deleted       bool
	HeaderDeleted bool
	Status        string
}

// memMovements evaluates KindSpec against in-memory rows the way the SQL builder does.
type memMovements struct {
	mu               sync.RWMutex
	rows             []*memRow
	requireValidated bool
	failures         map[Kind]error
	calls            int
}

func newMemMovements() *memMovements {
	return &memMovements{failures: make(map[Kind]error)}
}

func (m *memMovements) add(r *memRow) *memRow {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, r)
	return r
}

func (m *memMovements) setDeleted(r *memRow, deleted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.Deleted = deleted
}

func (m *memMovements) SumMovements(ctx context.Context, spec KindSpec, scope Scope) (decimal.Decimal, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.failures[spec.Kind]; err != nil {
		return decimal.Zero, err
	}

	sum := decimal.Zero
	for _, r := range m.rows {
		if r.Table != spec.Table {
			continue
		}
		switch spec.UnitKey {
		case UnitKeyCode:
			if r.UnitCode != scope.UnitCode {
				continue
			}
		default:
			if r.ArticleID != scope.ArticleID || r.UnitID != scope.UnitID {
				continue
			}
		}
		if scope.WarehouseID != nil {
			wh, ok := r.Warehouses[spec.WarehouseColumn]
			if !ok || wh != *scope.WarehouseID {
				continue
			}
		}
		if spec.Deleted != DeletedIgnored && r.Deleted {
			continue
		}
		if spec.Deleted == DeletedDetailAndHeader && r.HeaderDeleted {
			continue
		}
		if m.requireValidated && spec.Header != nil && spec.Header.StatusColumn != "" && r.Status != ValidatedSaleStatus {
			continue
		}
		sum = sum.Add(r.Qty)
	}
	return sum, nil
}

// --- row builders ---

func q(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func reception(article, unitID, wh int64, qty string) *memRow {
	return &memRow{Table: "tb_livraisonfrs", ArticleID: article, UnitID: unitID,
		Warehouses: map[string]int64{"idmag": wh}, Qty: q(qty)}
}

func sale(article, unitID, wh int64, qty string) *memRow {
	return &memRow{Table: "tb_ventedetail", ArticleID: article, UnitID: unitID,
		Warehouses: map[string]int64{"idmag": wh}, Qty: q(qty), Status: ValidatedSaleStatus}
}

func creditNote(article, unitID, wh int64, qty string) *memRow {
	return &memRow{Table: "tb_avoirdetail", ArticleID: article, UnitID: unitID,
		Warehouses: map[string]int64{"idmag": wh}, Qty: q(qty)}
}

func stockOut(article, unitID, wh int64, qty string) *memRow {
	return &memRow{Table: "tb_sortiedetail", ArticleID: article, UnitID: unitID,
		Warehouses: map[string]int64{"idmag": wh}, Qty: q(qty)}
}

func consumption(article, unitID, wh int64, qty string) *memRow {
	return &memRow{Table: "tb_consommationinterne_details", ArticleID: article, UnitID: unitID,
		Warehouses: map[string]int64{"idmag": wh}, Qty: q(qty)}
}

func transfer(article, unitID, from, to int64, qty string) *memRow {
	return &memRow{Table: "tb_transfertdetail", ArticleID: article, UnitID: unitID,
		Warehouses: map[string]int64{"idmagsortie": from, "idmagentree": to}, Qty: q(qty)}
}

func inventoryCount(code string, wh int64, qty string) *memRow {
	return &memRow{Table: "tb_inventaire", UnitCode: code,
		Warehouses: map[string]int64{"idmag": wh}, Qty: q(qty)}
}

func exchangeIn(article, unitID, wh int64, qty string) *memRow {
	return &memRow{Table: "tb_detailchange_entree", ArticleID: article, UnitID: unitID,
		Warehouses: map[string]int64{"idmagasin": wh}, Qty: q(qty)}
}

func exchangeOut(article, unitID, wh int64, qty string) *memRow {
	return &memRow{Table: "tb_detailchange_sortie", ArticleID: article, UnitID: unitID,
		Warehouses: map[string]int64{"idmagasin": wh}, Qty: q(qty)}
}

// --- units ---

type memUnits struct {
	records []unit.Record
	err     error
}

func (m *memUnits) ListByArticle(ctx context.Context, articleID int64) ([]unit.Record, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []unit.Record
	for _, r := range m.records {
		if r.ArticleID == articleID {
			out = append(out, r)
		}
	}
	return out, nil
}

func unitRecord(id, article int64, code, label, coef string) unit.Record {
	return unit.Record{
		ID:          id,
		ArticleID:   article,
		Code:        code,
		Label:       label,
		Coefficient: decimal.NewNullDecimal(decimal.RequireFromString(coef)),
	}
}

func ptr(v int64) *int64 { return &v }
