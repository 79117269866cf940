package domain

// ContactStatus enumerates the subscription states of a contact.
type ContactStatus string

const (
	ContactSubscribed   ContactStatus = "subscribed"
	ContactUnsubscribed ContactStatus = "unsubscribed"
	ContactBounced      ContactStatus = "bounced"
)

// Recipient is a contact resolved for delivery. Only subscribed contacts
// are ever resolved.
type Recipient struct {
	ID    string `json:"id" db:"id"`
	Email string `json:"email" db:"email"`
	Name  string `json:"name" db:"name"`
}
