package app

import "github.com/charlesng35/phonegate/pkg/sms"

// SenderSettings converts SMSConfig into the settings consumed by sms.NewSender.
func (c SMSConfig) SenderSettings() sms.Settings {
	return sms.Settings{
		Enabled: c.Enabled,
		From:    c.From,
	}
}
