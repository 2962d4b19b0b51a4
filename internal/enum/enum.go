package enum

// ── State machines (CHECK constrained in DB) ──

const (
	OrderStatusPending        = "PENDING"
	OrderStatusProcessing     = "PROCESSING"
	OrderStatusOutForDelivery = "OUT_FOR_DELIVERY"
	OrderStatusCompleted      = "COMPLETED"
	OrderStatusCancelled      = "CANCELLED"
)

const (
	PaymentStatusPending = "PENDING"
	PaymentStatusPartial = "PARTIAL"
	PaymentStatusFull    = "FULL"
)

// ── Catalog ──

const (
	ProductTypeManufactured = "MANUFACTURED"
	ProductTypeRawMaterial  = "RAW_MATERIAL"
	ProductTypeConsumable   = "CONSUMABLE"
)

// ── Orders ──

const (
	OrderTypeDineIn      = "DINE_IN"
	OrderTypeTakeaway    = "TAKEAWAY"
	OrderTypeDelivery    = "DELIVERY"
	OrderTypeWebDelivery = "WEB_DELIVERY"
	OrderTypeWebTakeaway = "WEB_TAKEAWAY"
	OrderTypeDirectSale  = "DIRECT_SALE"
)

const (
	DiscountTypePercent = "PERCENT"
	DiscountTypeFixed   = "FIXED"
)

const (
	PaymentMethodCash           = "CASH"
	PaymentMethodCard           = "CARD"
	PaymentMethodThirdPartyCard = "THIRD_PARTY_CARD"
)

// ── Inventory ledger ──

const (
	MovementOpIn  = "IN"
	MovementOpOut = "OUT"
)

const (
	MovementReasonPurchase       = "PURCHASE"
	MovementReasonPurchaseReturn = "PURCHASE_RETURN"
	MovementReasonOrder          = "ORDER"
	MovementReasonOrderReturn    = "ORDER_RETURN"
	MovementReasonWaste          = "WASTE"
	MovementReasonStocktaking    = "STOCKTAKING"
	MovementReasonAdjustment     = "ADJUSTMENT"
	MovementReasonTransfer       = "TRANSFER"
	MovementReasonInitialStock   = "INITIAL_STOCK"
	MovementReasonManual         = "MANUAL"
)

// Origin kinds form the closed set of documents a movement can point back to.
const (
	OriginKindOrder           = "ORDER"
	OriginKindPurchaseInvoice = "PURCHASE_INVOICE"
	OriginKindWaste           = "WASTE"
	OriginKindStocktaking     = "STOCKTAKING"
	OriginKindManual          = "MANUAL"
)

// ── Users ──

const (
	UserRoleAdmin   = "ADMIN"
	UserRoleManager = "MANAGER"
	UserRoleCashier = "CASHIER"
)

// ── Settings keys ──

const (
	SettingServiceChargeRate = "service_charge_rate"
	SettingTaxRate           = "tax_rate"
)
