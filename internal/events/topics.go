package events

// Topic constants for domain events emitted by the park booking service.
const (
	TopicBookingCreated    = "booking.created"
	TopicBookingPaid       = "booking.paid"
	TopicBookingPayment    = "booking.payment_updated"
	TopicBookingCancelled  = "booking.cancelled"
	TopicBookingCheckedIn  = "booking.checked_in"
	TopicBookingCheckedOut = "booking.checked_out"
	TopicPricingUpdated    = "pricing.updated"
)

// NotifiableTopics returns the topics that produce visitor emails.
func NotifiableTopics() []string {
	return []string{
		TopicBookingCreated,
		TopicBookingPaid,
		TopicBookingCancelled,
	}
}
