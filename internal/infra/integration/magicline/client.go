package magicline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/xavierca1/funnelsync/internal/entity"
)

const (
	singleCallTimeout = 10 * time.Second
	bulkCallTimeout   = 60 * time.Second
	bulkPageSize      = 200
)

// Client talks to one tenant portal of the membership platform. Credentials
// and base endpoint come from the TenantConfig passed at construction.
type Client struct {
	tenant  string
	baseURL string
	apiKey  string
	http    *http.Client
	bulk    *http.Client
}

func NewClient(cfg entity.TenantConfig) *Client {
	return &Client{
		tenant:  cfg.Code,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: singleCallTimeout},
		bulk:    &http.Client{Timeout: bulkCallTimeout},
	}
}

func (c *Client) Tenant() string {
	return c.tenant
}

// FetchActiveMembership returns the newest active contract for a member,
// or (nil, nil) when the platform reports none.
func (c *Client) FetchActiveMembership(ctx context.Context, externalMemberID string) (*MembershipFact, error) {
	endpoint := fmt.Sprintf("%s/v1/members/%s/active-contract", c.baseURL, url.PathEscape(externalMemberID))

	body, found, err := c.get(ctx, c.http, endpoint)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	var response contractResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("magicline[%s]: decode active-contract: %w", c.tenant, err)
	}
	if response.Contract == nil {
		return nil, nil
	}

	fact, err := contractToFact(*response.Contract)
	if err != nil {
		return nil, err
	}
	return &fact, nil
}

// FetchCoursePurchase returns the newest qualifying course-package purchase
// for a member, or (nil, nil) when there is none. Trial-class products and
// packages outside the 10/16 sizes never reach the caller.
func (c *Client) FetchCoursePurchase(ctx context.Context, externalMemberID string) (*CourseFact, error) {
	endpoint := fmt.Sprintf("%s/v1/members/%s/course-purchases", c.baseURL, url.PathEscape(externalMemberID))

	body, found, err := c.get(ctx, c.http, endpoint)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	var response purchaseResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("magicline[%s]: decode course-purchases: %w", c.tenant, err)
	}

	var newest *CourseFact
	for _, dto := range response.Purchases {
		if !qualifiesAsCourse(dto) {
			continue
		}
		fact, err := purchaseToFact(dto)
		if err != nil {
			continue
		}
		if newest == nil || fact.PurchaseDate.After(newest.PurchaseDate) {
			f := fact
			newest = &f
		}
	}
	return newest, nil
}

// FetchAllActiveMemberships pages through every active contract of the
// tenant and keeps the newest contract per member id. One bulk call per
// tenant replaces one call per candidate.
func (c *Client) FetchAllActiveMemberships(ctx context.Context) (map[string]MembershipFact, error) {
	facts := make(map[string]MembershipFact)

	for page := 0; ; page++ {
		endpoint := fmt.Sprintf("%s/v1/contracts/active?page=%d&pageSize=%d", c.baseURL, page, bulkPageSize)

		body, found, err := c.get(ctx, c.bulk, endpoint)
		if err != nil {
			return nil, err
		}
		if !found {
			break
		}

		var result contractPage
		if err := json.Unmarshal(body, &result); err != nil {
			return nil, fmt.Errorf("magicline[%s]: decode contracts page %d: %w", c.tenant, page, err)
		}

		for _, dto := range result.Items {
			fact, err := contractToFact(dto)
			if err != nil {
				continue
			}
			current, ok := facts[fact.ExternalMemberID]
			if !ok || fact.StartDate.After(current.StartDate) {
				facts[fact.ExternalMemberID] = fact
			}
		}

		if !result.HasNext {
			break
		}
	}

	return facts, nil
}

// FetchAllCoursePurchases pages through course purchases and keeps the
// newest qualifying purchase per member id, with the facility it was
// bought at.
func (c *Client) FetchAllCoursePurchases(ctx context.Context) (map[string]CourseFact, error) {
	facts := make(map[string]CourseFact)

	for page := 0; ; page++ {
		endpoint := fmt.Sprintf("%s/v1/course-purchases?page=%d&pageSize=%d", c.baseURL, page, bulkPageSize)

		body, found, err := c.get(ctx, c.bulk, endpoint)
		if err != nil {
			return nil, err
		}
		if !found {
			break
		}

		var result purchasePage
		if err := json.Unmarshal(body, &result); err != nil {
			return nil, fmt.Errorf("magicline[%s]: decode purchases page %d: %w", c.tenant, page, err)
		}

		for _, dto := range result.Items {
			if !qualifiesAsCourse(dto) {
				continue
			}
			fact, err := purchaseToFact(dto)
			if err != nil {
				continue
			}
			current, ok := facts[fact.ExternalMemberID]
			if !ok || fact.PurchaseDate.After(current.PurchaseDate) {
				facts[fact.ExternalMemberID] = fact
			}
		}

		if !result.HasNext {
			break
		}
	}

	return facts, nil
}

// get performs a GET and classifies the response: (body, true, nil) on 2xx,
// (nil, false, nil) on 404, error otherwise. Callers treat errors as soft
// failures for the affected candidate or tenant, never as batch aborts.
func (c *Client) get(ctx context.Context, client *http.Client, endpoint string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, false, err
	}
	c.setHeaders(req)

	resp, err := client.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("magicline[%s]: request failed: %w", c.tenant, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, false, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, false, fmt.Errorf("magicline[%s]: status %d on %s", c.tenant, resp.StatusCode, endpoint)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("magicline[%s]: read body: %w", c.tenant, err)
	}
	return body, true, nil
}

// setHeaders centralizes the mandatory headers
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "FunnelSync/1.0")
}

// qualifiesAsCourse filters the business rule: only real course cards of
// size 10 or 16 count; trial-class products never do.
func qualifiesAsCourse(dto purchaseDTO) bool {
	if strings.EqualFold(dto.ProductType, "TRIAL_CLASS") {
		return false
	}
	name := strings.ToLower(dto.ProductName)
	if strings.Contains(name, "trial") || strings.Contains(name, "probetraining") {
		return false
	}
	return dto.InitialQuantity == 10 || dto.InitialQuantity == 16
}

func contractToFact(dto contractDTO) (MembershipFact, error) {
	start, err := time.Parse("2006-01-02", dto.StartDate)
	if err != nil {
		return MembershipFact{}, fmt.Errorf("bad contract start date %q: %w", dto.StartDate, err)
	}
	return MembershipFact{
		ExternalMemberID: dto.MemberID,
		PlanName:         dto.PlanName,
		StartDate:        start,
	}, nil
}

func purchaseToFact(dto purchaseDTO) (CourseFact, error) {
	purchased, err := time.Parse("2006-01-02", dto.PurchaseDate)
	if err != nil {
		return CourseFact{}, fmt.Errorf("bad purchase date %q: %w", dto.PurchaseDate, err)
	}
	return CourseFact{
		ExternalMemberID: dto.MemberID,
		PurchaseDate:     purchased,
		InitialQuantity:  dto.InitialQuantity,
		FacilityID:       strings.TrimSpace(dto.FacilityID),
	}, nil
}
