package domain

const (
	RoleAdmin   = "ADMIN"
	RoleHost    = "HOST"
	RoleTourist = "TOURIST"
)

const (
	UserStatusActive  = "ACTIVE"
	UserStatusBlocked = "BLOCKED"
	UserStatusDeleted = "DELETED"
)

const (
	BookingPending   = "PENDING"
	BookingConfirmed = "CONFIRMED"
	BookingCancelled = "CANCELLED"
	BookingCompleted = "COMPLETED"
)

const (
	PaymentPending    = "PENDING"
	PaymentProcessing = "PROCESSING"
	PaymentCompleted  = "COMPLETED"
	PaymentFailed     = "FAILED"
	PaymentCancelled  = "CANCELLED"
	PaymentRefunded   = "REFUNDED"
)

const (
	PaymentMethodOnline = "ONLINE"
	PaymentMethodCOD    = "COD"
)

const (
	SubscriptionPending   = "PENDING"
	SubscriptionActive    = "ACTIVE"
	SubscriptionCancelled = "CANCELLED"
	SubscriptionExpired   = "EXPIRED"
)

const (
	PayoutPending   = "PENDING"
	PayoutCompleted = "COMPLETED"
	PayoutFailed    = "FAILED"
)

const (
	LedgerEarning        = "EARNING"
	LedgerPayout         = "PAYOUT"
	LedgerPayoutReversal = "PAYOUT_REVERSAL"
)

const (
	BlogDraft     = "DRAFT"
	BlogPublished = "PUBLISHED"
)

// Host share of every paid booking, in percent. The rest is the platform fee.
const HostSharePercent = 85

// Limits applied to hosts without a paid subscription.
const (
	FreeTourLimit = 4
	FreeBlogLimit = 5
)

var TourCategories = []string{"ADVENTURE", "CULTURAL", "BEACH", "MOUNTAIN", "URBAN", "NATURE", "FOOD", "HISTORICAL", "RELIGIOUS", "LUXURY"}

var TourDifficulties = []string{"EASY", "MODERATE", "DIFFICULT", "EXTREME"}

// HostShare returns the host's part of amountCents.
func HostShare(amountCents int64) int64 {
	return amountCents * HostSharePercent / 100
}
