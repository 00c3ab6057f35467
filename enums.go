package revstream

import "slices"

// StreamType is the top-level discriminator of a revenue stream.
type StreamType string

const (
	StreamUnitSales        StreamType = "UNIT_SALES"
	StreamBillableHours    StreamType = "BILLABLE_HOURS"
	StreamRecurringCharges StreamType = "RECURRING_CHARGES"
	StreamRevenueOnly      StreamType = "REVENUE_ONLY"
)

// SaleRate is the recurrence period of a constant quantity.
type SaleRate string

const (
	RateMonth SaleRate = "MONTH"
	RateYear  SaleRate = "YEAR"
)

// Shape discriminators of constant/varying fields.
const (
	FormatNoFee    = "NO_FEE"
	FormatConstant = "CONSTANT"
	FormatVarying  = "VARYING"
)

// RevenueAmountType selects how a revenue-only stream expresses its amount.
type RevenueAmountType string

const (
	RevenueAmount           RevenueAmountType = "AMOUNT"
	RevenuePercentOfRevenue RevenueAmountType = "PERCENT_OF_REVENUE"
)

// Closed value sets. Membership is exact string equality.
var (
	streamTypes             = []string{string(StreamUnitSales), string(StreamBillableHours), string(StreamRecurringCharges), string(StreamRevenueOnly)}
	saleRates               = []string{string(RateMonth), string(RateYear)}
	unitFormats             = []string{FormatConstant, FormatVarying}
	unitPriceFormatsWithFee = []string{FormatNoFee, FormatConstant, FormatVarying}
	revenueAmountTypes      = []string{string(RevenueAmount), string(RevenuePercentOfRevenue)}
)

// StreamTypes returns STREAM_TYPES.
func StreamTypes() []string { return slices.Clone(streamTypes) }

// SaleRates returns SALE_RATE.
func SaleRates() []string { return slices.Clone(saleRates) }

// UnitFormats returns UNIT_FORMAT.
func UnitFormats() []string { return slices.Clone(unitFormats) }

// UnitPriceFormatsWithFee returns UNIT_PRICE_FORMAT_WITH_FREE.
func UnitPriceFormatsWithFee() []string { return slices.Clone(unitPriceFormatsWithFee) }

// RevenueAmountTypes returns REVENUE_AMOUNT_TYPE.
func RevenueAmountTypes() []string { return slices.Clone(revenueAmountTypes) }

// Valid reports membership in STREAM_TYPES.
func (t StreamType) Valid() bool { return slices.Contains(streamTypes, string(t)) }

// Valid reports membership in SALE_RATE.
func (r SaleRate) Valid() bool { return slices.Contains(saleRates, string(r)) }

// Valid reports membership in REVENUE_AMOUNT_TYPE.
func (t RevenueAmountType) Valid() bool { return slices.Contains(revenueAmountTypes, string(t)) }
