package payment

import "strings"

const (
	// TradeStatusSuccess is the gateway's terminal success marker; every
	// other trade_status fails the order.
	TradeStatusSuccess = "TRADE_SUCCESS"

	SignTypeMD5 = "MD5"
)

// Notification is the normalized shape of a gateway payment callback.
// The field set is bit-exact what the aggregate gateway posts.
type Notification struct {
	PID         string // gateway merchant id
	Type        string // payment method (alipay, wxpay, ...)
	NotifyURL   string
	ReturnURL   string
	OutTradeNo  string // our order number
	TradeNo     string // gateway transaction id
	Name        string // product name
	Money       string // amount actually paid, decimal string
	TradeStatus string
	Sign        string
	SignType    string
}

// ParseNotification extracts the known fields from the raw callback
// parameters. Verification always runs against the full raw map, not this
// struct, so unknown extra parameters still count into the signature.
func ParseNotification(params map[string]string) Notification {
	return Notification{
		PID:         params["pid"],
		Type:        params["type"],
		NotifyURL:   params["notify_url"],
		ReturnURL:   params["return_url"],
		OutTradeNo:  params["out_trade_no"],
		TradeNo:     params["trade_no"],
		Name:        params["name"],
		Money:       params["money"],
		TradeStatus: params["trade_status"],
		Sign:        params["sign"],
		SignType:    params["sign_type"],
	}
}

// Succeeded reports whether the gateway reported a successful payment.
func (n Notification) Succeeded() bool {
	return strings.EqualFold(strings.TrimSpace(n.TradeStatus), TradeStatusSuccess)
}

// Result is the reconciliation outcome reported back to the webhook
// handler. Duplicate means the order was already terminal and nothing was
// mutated; the gateway still gets a success acknowledgement.
type Result struct {
	OrderNo   string
	Status    string
	Duplicate bool
	Note      string
}
