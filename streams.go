package revstream

// MinNameLength is the minimum number of characters of a stream name.
const MinNameLength = 4

// RevenueStream is a validated stream definition. The concrete type is one of
// *UnitSales, *BillableHours, *RecurringCharges or *RevenueOnly and is fixed
// by the stream_type discriminator. Values are never mutated after validation.
type RevenueStream interface {
	StreamType() StreamType
	Name() string
	isRevenueStream()
}

// UnitSales: units sold at a unit price.
type UnitSales struct {
	name      string
	unitSales Quantity
	unitPrice Price
}

func (*UnitSales) StreamType() StreamType { return StreamUnitSales }
func (s *UnitSales) Name() string         { return s.name }
func (s *UnitSales) UnitSales() Quantity  { return s.unitSales }
func (s *UnitSales) UnitPrice() Price     { return s.unitPrice }
func (*UnitSales) isRevenueStream()       {}

// BillableHours: hours billed at an hourly rate.
type BillableHours struct {
	name          string
	billableHours Quantity
	hourlyRate    Price
}

func (*BillableHours) StreamType() StreamType    { return StreamBillableHours }
func (s *BillableHours) Name() string            { return s.name }
func (s *BillableHours) BillableHours() Quantity { return s.billableHours }
func (s *BillableHours) HourlyRate() Price       { return s.hourlyRate }
func (*BillableHours) isRevenueStream()          {}

// Charges groups the two independent charge settings of a subscription.
type Charges struct {
	UpFront   UpFrontFee
	Frequency Frequency
}

// RecurringCharges: subscriptions with signups, charges and churn.
type RecurringCharges struct {
	name    string
	signups Signups
	charges Charges
	churn   Price
}

func (*RecurringCharges) StreamType() StreamType { return StreamRecurringCharges }
func (s *RecurringCharges) Name() string         { return s.name }
func (s *RecurringCharges) Signups() Signups     { return s.signups }
func (s *RecurringCharges) Charges() Charges     { return s.charges }
func (s *RecurringCharges) Churn() Price         { return s.churn }
func (*RecurringCharges) isRevenueStream()       {}

// Revenue is either an absolute amount or a percentage of another stream.
type Revenue struct {
	kind    RevenueAmountType
	amount  AmountShare
	percent PercentShare
}

func (r Revenue) Type() RevenueAmountType { return r.kind }

// Amount is set when Type is AMOUNT.
func (r Revenue) Amount() (AmountShare, bool) { return r.amount, r.kind == RevenueAmount }

// Percent is set when Type is PERCENT_OF_REVENUE.
func (r Revenue) Percent() (PercentShare, bool) {
	return r.percent, r.kind == RevenuePercentOfRevenue
}

// RevenueOnly: pass-through revenue with no unit model.
type RevenueOnly struct {
	name    string
	revenue Revenue
}

func (*RevenueOnly) StreamType() StreamType { return StreamRevenueOnly }
func (s *RevenueOnly) Name() string         { return s.name }
func (s *RevenueOnly) Revenue() Revenue     { return s.revenue }
func (*RevenueOnly) isRevenueStream()       {}

// streamDecoders maps each stream type to its record validator.
var streamDecoders = map[StreamType]func(c *collector, obj map[string]any, at PathRef) RevenueStream{
	StreamUnitSales:        decodeUnitSales,
	StreamBillableHours:    decodeBillableHours,
	StreamRecurringCharges: decodeRecurringCharges,
	StreamRevenueOnly:      decodeRevenueOnly,
}

// decodeStream is the top-level dispatcher.
func decodeStream(c *collector, v any) RevenueStream {
	at := Root()
	obj, ok := c.object(v, at)
	if !ok {
		return nil
	}
	tag, ok := c.discriminator(obj, "stream_type", at, streamTypes)
	if !ok {
		return nil
	}
	return streamDecoders[StreamType(tag)](c, obj, at)
}

// field runs decode on obj[key], reporting a missing key as required.
func field[T any](c *collector, obj map[string]any, key string, at PathRef, decode func(*collector, any, PathRef) T) T {
	var zero T
	if c.stop() {
		return zero
	}
	v, ok := obj[key]
	if !ok {
		c.add(at.Field(key).Issue(CodeRequired, key+" is required"))
		return zero
	}
	return decode(c, v, at.Field(key))
}

func decodeName(c *collector, obj map[string]any, at PathRef) string {
	return c.requireString(obj, "name", at, MinNameLength)
}

func decodeUnitSales(c *collector, obj map[string]any, at PathRef) RevenueStream {
	s := &UnitSales{
		name:      decodeName(c, obj, at),
		unitSales: field(c, obj, "unit_sales", at, quantitySpec.parse),
		unitPrice: field(c, obj, "unit_price", at, priceSpec.parse),
	}
	c.checkUnknown(obj, at, "stream_type", "name", "unit_sales", "unit_price")
	return s
}

func decodeBillableHours(c *collector, obj map[string]any, at PathRef) RevenueStream {
	s := &BillableHours{
		name:          decodeName(c, obj, at),
		billableHours: field(c, obj, "billable_hours", at, quantitySpec.parse),
		hourlyRate:    field(c, obj, "hourly_rate", at, priceSpec.parse),
	}
	c.checkUnknown(obj, at, "stream_type", "name", "billable_hours", "hourly_rate")
	return s
}

func decodeRecurringCharges(c *collector, obj map[string]any, at PathRef) RevenueStream {
	s := &RecurringCharges{
		name:    decodeName(c, obj, at),
		signups: field(c, obj, "signups", at, signupSpec.parse),
		charges: field(c, obj, "charges", at, decodeCharges),
		churn:   field(c, obj, "churn", at, priceSpec.parse),
	}
	c.checkUnknown(obj, at, "stream_type", "name", "signups", "charges", "churn")
	return s
}

// decodeCharges validates up_front and update_recurrent_frequency
// independently; each reports under its own path.
func decodeCharges(c *collector, v any, at PathRef) Charges {
	obj, ok := c.object(v, at)
	if !ok {
		return Charges{}
	}
	ch := Charges{
		UpFront:   field(c, obj, "up_front", at, feeSpec.parse),
		Frequency: field(c, obj, "update_recurrent_frequency", at, frequencySpec.parse),
	}
	c.checkUnknown(obj, at, "up_front", "update_recurrent_frequency")
	return ch
}

func decodeRevenueOnly(c *collector, obj map[string]any, at PathRef) RevenueStream {
	s := &RevenueOnly{
		name:    decodeName(c, obj, at),
		revenue: field(c, obj, "revenue", at, decodeRevenue),
	}
	c.checkUnknown(obj, at, "stream_type", "name", "revenue")
	return s
}

// decodeRevenue resolves the AMOUNT / PERCENT_OF_REVENUE level before the
// constant/varying level under data.
func decodeRevenue(c *collector, v any, at PathRef) Revenue {
	obj, ok := c.object(v, at)
	if !ok {
		return Revenue{}
	}
	tag, ok := c.discriminator(obj, "type", at, revenueAmountTypes)
	if !ok {
		return Revenue{}
	}
	r := Revenue{kind: RevenueAmountType(tag)}
	switch r.kind {
	case RevenueAmount:
		r.amount = field(c, obj, "data", at, quantitySpec.parse)
	case RevenuePercentOfRevenue:
		r.percent = field(c, obj, "data", at, shareSpec.parse)
	}
	c.checkUnknown(obj, at, "type", "data")
	return r
}
