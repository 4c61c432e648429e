package stock

import (
	"github.com/shopspring/decimal"
)

// Kind identifies a movement source feeding the reservoir.
type Kind string

const (
	KindReception   Kind = "reception"    // supplier delivery
	KindTransferIn  Kind = "transfer_in"  // transfer, entry leg
	KindInventory   Kind = "inventory"    // inventory count (additive)
	KindCreditNote  Kind = "credit_note"  // customer return
	KindExchangeIn  Kind = "exchange_in"  // unit exchange, entry leg
	KindSale        Kind = "sale"         // sale line
	KindStockOut    Kind = "stock_out"    // stock-out slip
	KindTransferOut Kind = "transfer_out" // transfer, exit leg
	KindConsumption Kind = "consumption"  // internal consumption
	KindExchangeOut Kind = "exchange_out" // unit exchange, exit leg
)

// Sign is the effect of a kind on the reservoir.
type Sign int

const (
	Increase Sign = 1
	Decrease Sign = -1
)

// Apply returns q with the sign applied.
func (s Sign) Apply(q decimal.Decimal) decimal.Decimal {
	if s == Decrease {
		return q.Neg()
	}
	return q
}

// UnitKey tells how movement rows reference a unit.
type UnitKey int

const (
	// UnitKeyID matches idarticle + idunite.
	UnitKeyID UnitKey = iota
	// UnitKeyCode matches the unit code only (inventory counts are keyed by codearticle).
	UnitKeyCode
)

// DeletedPolicy tells which soft-delete flags a kind honors.
type DeletedPolicy int

const (
	// DeletedIgnored: the source has no usable flag, every row counts.
	DeletedIgnored DeletedPolicy = iota
	// DeletedDetail: rows with deleted = 1 are excluded.
	DeletedDetail
	// DeletedDetailAndHeader: detail rows and their document header must both be live.
	DeletedDetailAndHeader
)

// Header describes the document header a detail table joins to.
type Header struct {
	Table string
	// JoinColumn exists on both the detail and the header.
	JoinColumn string
	// StatusColumn holds the document status; empty when the header has none.
	StatusColumn string
}

// KindSpec is the full configuration of one movement kind.
type KindSpec struct {
	Kind Kind
	Sign Sign

	Table          string
	QuantityColumn string

	UnitKey       UnitKey
	ArticleColumn string // empty for UnitKeyCode
	UnitColumn    string

	WarehouseColumn string
	// WarehouseOnHeader moves the warehouse filter to the joined header.
	WarehouseOnHeader bool

	Deleted DeletedPolicy
	Header  *Header
}

// ValidatedSaleStatus is the header status of a confirmed sale.
const ValidatedSaleStatus = "VALIDEE"

// kinds is the canonical table, increases first.
var kinds = []KindSpec{
	{
		Kind: KindReception, Sign: Increase,
		Table: "tb_livraisonfrs", QuantityColumn: "qtlivrefrs",
		UnitKey: UnitKeyID, ArticleColumn: "idarticle", UnitColumn: "idunite",
		WarehouseColumn: "idmag",
		Deleted:         DeletedDetail,
	},
	{
		Kind: KindTransferIn, Sign: Increase,
		Table: "tb_transfertdetail", QuantityColumn: "qttransfert",
		UnitKey: UnitKeyID, ArticleColumn: "idarticle", UnitColumn: "idunite",
		WarehouseColumn: "idmagentree",
		Deleted:         DeletedDetail,
	},
	{
		Kind: KindInventory, Sign: Increase,
		Table: "tb_inventaire", QuantityColumn: "qtinventaire",
		UnitKey: UnitKeyCode, UnitColumn: "codearticle",
		WarehouseColumn: "idmag",
		Deleted:         DeletedIgnored,
	},
	{
		Kind: KindCreditNote, Sign: Increase,
		Table: "tb_avoirdetail", QuantityColumn: "qtavoir",
		UnitKey: UnitKeyID, ArticleColumn: "idarticle", UnitColumn: "idunite",
		WarehouseColumn: "idmag",
		Deleted:         DeletedDetailAndHeader,
		Header:          &Header{Table: "tb_avoir", JoinColumn: "idavoir"},
	},
	{
		Kind: KindExchangeIn, Sign: Increase,
		Table: "tb_detailchange_entree", QuantityColumn: "quantite_entree",
		UnitKey: UnitKeyID, ArticleColumn: "idarticle", UnitColumn: "idunite",
		WarehouseColumn: "idmagasin",
		Deleted:         DeletedIgnored,
	},
	{
		Kind: KindSale, Sign: Decrease,
		Table: "tb_ventedetail", QuantityColumn: "qtvente",
		UnitKey: UnitKeyID, ArticleColumn: "idarticle", UnitColumn: "idunite",
		WarehouseColumn: "idmag", WarehouseOnHeader: true,
		Deleted:         DeletedDetailAndHeader,
		Header:          &Header{Table: "tb_vente", JoinColumn: "idvente", StatusColumn: "statut"},
	},
	{
		Kind: KindStockOut, Sign: Decrease,
		Table: "tb_sortiedetail", QuantityColumn: "qtsortie",
		UnitKey: UnitKeyID, ArticleColumn: "idarticle", UnitColumn: "idunite",
		WarehouseColumn: "idmag",
		Deleted:         DeletedIgnored,
	},
	{
		Kind: KindTransferOut, Sign: Decrease,
		Table: "tb_transfertdetail", QuantityColumn: "qttransfert",
		UnitKey: UnitKeyID, ArticleColumn: "idarticle", UnitColumn: "idunite",
		WarehouseColumn: "idmagsortie",
		Deleted:         DeletedDetail,
	},
	{
		Kind: KindConsumption, Sign: Decrease,
		Table: "tb_consommationinterne_details", QuantityColumn: "qtconsomme",
		UnitKey: UnitKeyID, ArticleColumn: "idarticle", UnitColumn: "idunite",
		WarehouseColumn: "idmag",
		Deleted:         DeletedIgnored,
	},
	{
		Kind: KindExchangeOut, Sign: Decrease,
		Table: "tb_detailchange_sortie", QuantityColumn: "quantite_sortie",
		UnitKey: UnitKeyID, ArticleColumn: "idarticle", UnitColumn: "idunite",
		WarehouseColumn: "idmagasin",
		Deleted:         DeletedIgnored,
	},
}

// Kinds returns a copy of the canonical kind table.
func Kinds() []KindSpec {
	out := make([]KindSpec, len(kinds))
	copy(out, kinds)
	return out
}

// SpecFor returns the configuration of a kind.
func SpecFor(k Kind) (KindSpec, bool) {
	for _, s := range kinds {
		if s.Kind == k {
			return s, true
		}
	}
	return KindSpec{}, false
}
