package fx

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RateSource fetches daily middle rates from an external exchange-rate list.
type RateSource interface {
	DailyRates(ctx context.Context, date time.Time) (map[string]decimal.Decimal, error)
}

// NBSClient talks to the NBS CurrentExchangeRate web service.
type NBSClient struct {
	baseURL    string
	username   string
	password   string
	licenceID  string
	httpClient *http.Client
}

// NBSCredentials carries the communication-office account data.
type NBSCredentials struct {
	Username  string
	Password  string
	LicenceID string
}

// NewNBSClient constructs a client. A non-positive timeout defaults to 10s.
func NewNBSClient(baseURL string, creds NBSCredentials, timeout time.Duration) *NBSClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &NBSClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		username:   creds.Username,
		password:   creds.Password,
		licenceID:  creds.LicenceID,
		httpClient: &http.Client{Timeout: timeout},
	}
}

const nbsNamespace = "http://communicationoffice.nbs.rs"

const nbsRequestTemplate = `<?xml version="1.0" encoding="utf-8"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Header>
    <AuthenticationHeader xmlns="%[1]s">
      <UserName>%[2]s</UserName>
      <Password>%[3]s</Password>
      <LicenceID>%[4]s</LicenceID>
    </AuthenticationHeader>
  </soap:Header>
  <soap:Body>
    <GetCurrentExchangeRate xmlns="%[1]s" />
  </soap:Body>
</soap:Envelope>`

type nbsEnvelope struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		Response struct {
			Result string `xml:"GetCurrentExchangeRateResult"`
		} `xml:"GetCurrentExchangeRateResponse"`
	} `xml:"Body"`
}

type nbsRateList struct {
	Rates []nbsRate `xml:"ExchangeRate"`
}

type nbsRate struct {
	CurrencyCode string `xml:"CurrencyCode"`
	MiddleRate   string `xml:"MiddleRate"`
}

// DailyRates fetches the current exchange-rate list and returns middle rates
// for the supported currencies. The date parameter selects the list day; the
// NBS endpoint publishes one list per banking day.
func (c *NBSClient) DailyRates(ctx context.Context, date time.Time) (map[string]decimal.Decimal, error) {
	envelope := fmt.Sprintf(nbsRequestTemplate, nbsNamespace, c.username, c.password, c.licenceID)
	url := fmt.Sprintf("%s/CommunicationOfficeService1_0/CurrentExchangeRateXmlService.asmx", c.baseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBufferString(envelope))
	if err != nil {
		return nil, fmt.Errorf("fx: build nbs request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", nbsNamespace+"/GetCurrentExchangeRate")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fx: call nbs: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("fx: nbs returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fx: read nbs response: %w", err)
	}

	rates, err := parseRateList(body)
	if err != nil {
		return nil, err
	}
	if len(rates) == 0 {
		return nil, fmt.Errorf("fx: no supported rates in nbs response for %s", DateKey(date))
	}
	return rates, nil
}

// parseRateList extracts supported middle rates from the service response.
// The rate list arrives as an XML document embedded in the SOAP result; when
// the embedded document is absent the body itself is parsed as a rate list.
func parseRateList(body []byte) (map[string]decimal.Decimal, error) {
	payload := body
	var envelope nbsEnvelope
	if err := xml.Unmarshal(body, &envelope); err == nil && envelope.Body.Response.Result != "" {
		payload = []byte(envelope.Body.Response.Result)
	}

	var list nbsRateList
	if err := xml.Unmarshal(payload, &list); err != nil {
		return nil, fmt.Errorf("fx: parse nbs rate list: %w", err)
	}

	rates := make(map[string]decimal.Decimal, len(SupportedCurrencies))
	for _, row := range list.Rates {
		if !IsSupported(row.CurrencyCode) {
			continue
		}
		// NBS formats decimals with a comma.
		value, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(row.MiddleRate), ",", "."))
		if err != nil {
			return nil, fmt.Errorf("fx: parse middle rate for %s: %w", row.CurrencyCode, err)
		}
		if !value.IsPositive() {
			continue
		}
		rates[row.CurrencyCode] = value
	}
	return rates, nil
}
