package licensing

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"nppflow/domain/contracts"
	"nppflow/infrastructure/config"
	"nppflow/infrastructure/restclient"
	"nppflow/logging"

	"github.com/tidwall/gjson"
)

// FunctionKeyHeader carries the licensing API key.
const FunctionKeyHeader = "x-functions-key"

// ErrNoSeatsAvailable is returned when the tenant has no free seat.
var ErrNoSeatsAvailable = contracts.ErrNoSeatsAvailable

// ApplicationIdentity identifies this application to the licensing API.
type ApplicationIdentity struct {
	ApplicationID string `json:"appId,omitempty"`
	Host          string `json:"host,omitempty"`
}

type seatRequest struct {
	EmailHash           string              `json:"emailHash"`
	ApplicationIdentity ApplicationIdentity `json:"applicationIdentity"`
}

// Client talks to the licensing API.
type Client struct {
	rest     *restclient.Client
	identity ApplicationIdentity
	logger   *logging.Logger
}

var _ contracts.LicensingGateway = (*Client)(nil)

// NewClient creates a licensing client. host is the SharePoint host name used
// when no application id is configured.
func NewClient(cfg *config.LicensingConfig, host string) *Client {
	return &Client{
		rest: restclient.New(restclient.Options{
			BaseURL:   cfg.BaseURL,
			Timeout:   cfg.Timeout,
			RetryMax:  cfg.RetryMax,
			Auth:      restclient.Header(FunctionKeyHeader, cfg.FunctionKey),
			Component: "licensing_client",
		}),
		identity: ApplicationIdentity{ApplicationID: cfg.ApplicationID, Host: host},
		logger:   logging.Default().WithComponent("licensing_client"),
	}
}

// HashEmail is the seat key: hex md5 of the lowercased, trimmed email.
func HashEmail(email string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	return hex.EncodeToString(sum[:])
}

func (c *Client) GetLicense(ctx context.Context, query contracts.LicenseQuery) (*contracts.License, error) {
	if query.ApplicationID == "" && query.Host == "" {
		query.ApplicationID = c.identity.ApplicationID
		query.Host = c.identity.Host
	}
	resp, err := c.rest.Do(ctx, http.MethodPost, "license", query)
	if err != nil {
		if contracts.StatusCode(err) == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %v", contracts.ErrLicenseInvalid, err)
		}
		return nil, err
	}
	license, err := parseLicense(resp.JSON())
	if err != nil {
		return nil, err
	}
	c.logger.Licensing("License resolved", "license_id", license.ID, "status", license.Status, "expires_on", license.ExpiresOn)
	return license, nil
}

func (c *Client) AllocateSeat(ctx context.Context, email string) error {
	_, err := c.rest.Do(ctx, http.MethodPost, "seats", c.seatRequest(email))
	if err != nil {
		if contracts.StatusCode(err) == http.StatusUnprocessableEntity {
			c.logger.Licensing("Seat denied", "email_hash", HashEmail(email))
			return fmt.Errorf("%w: %v", ErrNoSeatsAvailable, err)
		}
		return err
	}
	c.logger.Licensing("Seat allocated", "email_hash", HashEmail(email))
	return nil
}

func (c *Client) ReleaseSeat(ctx context.Context, email string) error {
	if _, err := c.rest.Do(ctx, http.MethodDelete, "seats", c.seatRequest(email)); err != nil {
		// Releasing a seat that is already gone is not an error.
		if contracts.StatusCode(err) == http.StatusNotFound {
			return nil
		}
		return err
	}
	c.logger.Licensing("Seat released", "email_hash", HashEmail(email))
	return nil
}

func (c *Client) UserSeats(ctx context.Context, email string) ([]contracts.Seat, error) {
	resp, err := c.rest.Do(ctx, http.MethodPost, "userseats", c.seatRequest(email))
	if err != nil {
		return nil, err
	}
	root := resp.JSON()
	if root.Get("seats").IsArray() {
		root = root.Get("seats")
	}
	var seats []contracts.Seat
	root.ForEach(func(_, v gjson.Result) bool {
		seats = append(seats, contracts.Seat{
			EmailHash:   v.Get("emailHash").String(),
			AllocatedOn: v.Get("allocatedOn").Time(),
		})
		return true
	})
	return seats, nil
}

func (c *Client) seatRequest(email string) seatRequest {
	return seatRequest{EmailHash: HashEmail(email), ApplicationIdentity: c.identity}
}

// parseLicense reads a license record, optionally wrapped in a "license" property.
func parseLicense(root gjson.Result) (*contracts.License, error) {
	if l := root.Get("license"); l.IsObject() {
		root = l
	}
	if !root.IsObject() {
		return nil, errors.New("decode license: not an object")
	}
	license := &contracts.License{
		ID:            root.Get("id").String(),
		TenantID:      root.Get("tenantId").String(),
		SharePointURL: strings.TrimRight(root.Get("sharePointUrl").String(), "/"),
		Status:        root.Get("status").String(),
		Seats:         int(root.Get("seats").Int()),
		UsedSeats:     int(root.Get("usedSeats").Int()),
	}
	if exp := root.Get("expiresOn").String(); exp != "" {
		t, err := time.Parse(time.RFC3339, exp)
		if err != nil {
			return nil, fmt.Errorf("decode license: expiresOn: %w", err)
		}
		license.ExpiresOn = t
	}
	return license, nil
}
