package service

import "fmt"

// Template is the rendered content of one transactional email.
type Template struct {
	Subject string
	HTML    string
	Text    string
}

// TemplateFunc renders a template for the given subscriber address.
// Injected through SubscriptionOptions so callers can supply their own copy.
type TemplateFunc func(email string) Template

// Templates bundles the transactional templates used around subscription
// changes. Nil fields fall back to the defaults below.
type Templates struct {
	OptIn         TemplateFunc
	OptOut        TemplateFunc
	NewSubscriber TemplateFunc
}

func defaultOptInTemplate(email string) Template {
	return Template{
		Subject: "Welcome!",
		HTML:    fmt.Sprintf("<p>Thanks for subscribing, %s!</p>", email),
		Text:    fmt.Sprintf("Thanks for subscribing, %s!", email),
	}
}

func defaultOptOutTemplate(string) Template {
	return Template{
		Subject: "You've been unsubscribed",
		HTML:    "<p>You've been unsubscribed from our newsletter.</p>",
		Text:    "You've been unsubscribed from our newsletter.",
	}
}

func defaultNewSubscriberTemplate(email string) Template {
	return Template{
		Subject: "New subscriber",
		HTML:    fmt.Sprintf("<p>New subscriber: %s</p>", email),
		Text:    fmt.Sprintf("New subscriber: %s", email),
	}
}

func (t Templates) withDefaults() Templates {
	if t.OptIn == nil {
		t.OptIn = defaultOptInTemplate
	}
	if t.OptOut == nil {
		t.OptOut = defaultOptOutTemplate
	}
	if t.NewSubscriber == nil {
		t.NewSubscriber = defaultNewSubscriberTemplate
	}
	return t
}
