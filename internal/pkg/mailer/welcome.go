package mailer

import "fmt"

// WelcomeEmail builds the signup greeting sent to a new customer.
func WelcomeEmail(from, fromName, to, name string) Email {
	return Email{
		FromName: fromName,
		From:     from,
		To:       []string{to},
		Subject:  "Welcome to QuickRide - Your Journey Begins Here!",
		HTMLBody: fmt.Sprintf(`<h2>Hello %s,</h2>
<p>Welcome to <strong>QuickRide</strong>! We're thrilled to have you on board.</p>
<p>Whether you're heading to a meeting, a weekend escape, or just cruising through town, we're here to make every trip smooth, safe, and enjoyable.</p>
<p>Browse cars, make bookings in seconds, and enjoy the ride, all from one platform.</p>
<p>Need help getting started? Our support team is just a click away.</p>
<p><strong>The QuickRide Team</strong></p>`, name),
		TextBody: fmt.Sprintf("Hello %s,\n\nWelcome to QuickRide! Browse cars and make bookings in seconds.\n\nThe QuickRide Team", name),
	}
}
