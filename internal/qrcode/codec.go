package qrcode

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

const (
	DefaultImageEndpoint = "https://api.qrserver.com/v1/create-qr-code/"
	DefaultDeepLinkBase  = "lemoncash://app/mini-apps/webview/squeeze"

	paymentPage = "payment"
	saleSize    = "400x400"
	walletSize  = "200x200"
)

var (
	ErrUnparseable   = errors.New("could not read QR code")
	ErrInvalidFormat = errors.New("invalid QR code format")
)

// Payload is what a payment QR code carries. An empty Amount means an
// open-amount sale.
type Payload struct {
	BusinessName string `json:"businessName"`
	Recipient    string `json:"recipient"`
	Amount       string `json:"amount,omitempty"`
}

func (p Payload) HasAmount() bool {
	return p.Amount != ""
}

type Codec struct {
	imageEndpoint string
	deepLinkBase  string
}

// NewCodec falls back to the public endpoints for empty arguments.
func NewCodec(imageEndpoint, deepLinkBase string) *Codec {
	if imageEndpoint == "" {
		imageEndpoint = DefaultImageEndpoint
	}
	if deepLinkBase == "" {
		deepLinkBase = DefaultDeepLinkBase
	}
	return &Codec{imageEndpoint: imageEndpoint, deepLinkBase: deepLinkBase}
}

// DeepLink builds the link the wallet app opens when the code is scanned.
func (c *Codec) DeepLink(p Payload) string {
	var b strings.Builder
	b.WriteString(c.deepLinkBase)
	b.WriteString("?page=")
	b.WriteString(paymentPage)
	b.WriteString("&businessName=")
	b.WriteString(url.QueryEscape(p.BusinessName))
	b.WriteString("&recipient=")
	b.WriteString(url.QueryEscape(p.Recipient))
	if p.HasAmount() {
		b.WriteString("&amount=")
		b.WriteString(url.QueryEscape(p.Amount))
	}
	return b.String()
}

// Encode returns the image endpoint URL rendering the deep link for p.
func (c *Codec) Encode(p Payload) string {
	return c.imageURL(saleSize, c.DeepLink(p))
}

// WalletImageURL renders a bare wallet address, used by the business hub.
func (c *Codec) WalletImageURL(wallet string) string {
	return c.imageURL(walletSize, wallet)
}

func (c *Codec) imageURL(size, data string) string {
	return fmt.Sprintf("%s?size=%s&data=%s&margin=0", c.imageEndpoint, size, url.QueryEscape(data))
}

// Decode parses scanned text. It accepts http(s) links with query parameters,
// custom-scheme deep links and image endpoint URLs produced by Encode.
func (c *Codec) Decode(raw string) (Payload, error) {
	return decode(strings.TrimSpace(raw), true)
}

func decode(raw string, followData bool) (Payload, error) {
	if raw == "" {
		return Payload{}, ErrUnparseable
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return Payload{}, ErrUnparseable
	}

	query := u.RawQuery
	if !isWebScheme(u.Scheme) {
		// custom schemes: everything before the query is routing for the host app
		query = ""
		if idx := strings.IndexByte(raw, '?'); idx >= 0 {
			query = raw[idx+1:]
		}
		if idx := strings.IndexByte(query, '#'); idx >= 0 {
			query = query[:idx]
		}
	}

	values, err := url.ParseQuery(query)
	if err != nil {
		return Payload{}, ErrUnparseable
	}

	p := Payload{
		BusinessName: values.Get("businessName"),
		Recipient:    values.Get("recipient"),
		Amount:       values.Get("amount"),
	}
	if p.BusinessName == "" && p.Recipient == "" && followData {
		if data := values.Get("data"); data != "" {
			return decode(data, false)
		}
	}
	if p.BusinessName == "" || p.Recipient == "" {
		return Payload{}, ErrInvalidFormat
	}
	return p, nil
}

func isWebScheme(scheme string) bool {
	s := strings.ToLower(scheme)
	return s == "http" || s == "https"
}
