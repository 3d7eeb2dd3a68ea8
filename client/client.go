// Package client is a Go SDK for the referral API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go-referral/web/db"
)

// APIError is a non-2xx answer of the API.
type APIError struct {
	Status  int
	Message string
	Fields  map[string]string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

// New returns a client for the API at baseURL. A nil httpClient uses one with
// a 30 second timeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: baseURL, http: httpClient}
}

// SetToken sets the bearer token sent with every call.
func (c *Client) SetToken(token string) {
	c.token = token
}

func (c *Client) Token() string {
	return c.token
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e struct {
			Error  string            `json:"error"`
			Fields map[string]string `json:"fields"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return &APIError{Status: resp.StatusCode, Message: e.Error, Fields: e.Fields}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// SignUpRequest is the signup body; role-specific fields may be left empty.
type SignUpRequest struct {
	Email           string   `json:"email"`
	Password        string   `json:"password"`
	Role            string   `json:"role"`
	DisplayName     string   `json:"display_name,omitempty"`
	Institution     string   `json:"institution,omitempty"`
	Major           string   `json:"major,omitempty"`
	GraduationYear  string   `json:"graduation_year,omitempty"`
	StudentNumber   string   `json:"student_number,omitempty"`
	CurrentSemester string   `json:"current_semester,omitempty"`
	Company         string   `json:"company,omitempty"`
	JobTitle        string   `json:"job_title,omitempty"`
	Experience      string   `json:"experience,omitempty"`
	Industry        string   `json:"industry,omitempty"`
	Skills          []string `json:"skills,omitempty"`
}

type authResponse struct {
	Token string   `json:"token"`
	User  *db.User `json:"user"`
}

func (c *Client) SignUp(ctx context.Context, req SignUpRequest) (string, *db.User, error) {
	var out authResponse
	if err := c.do(ctx, http.MethodPost, "/signup", req, &out); err != nil {
		return "", nil, err
	}
	return out.Token, out.User, nil
}

func (c *Client) SignIn(ctx context.Context, email, password string) (string, *db.User, error) {
	var out authResponse
	in := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/login", in, &out); err != nil {
		return "", nil, err
	}
	return out.Token, out.User, nil
}

func (c *Client) SignOut(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/logout", nil, nil)
}

func (c *Client) ResetPassword(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPost, "/password/reset", map[string]string{"email": email}, nil)
}

func (c *Client) ConfirmReset(ctx context.Context, token, password string) error {
	return c.do(ctx, http.MethodPost, "/password/reset/confirm", map[string]string{"token": token, "password": password}, nil)
}

type userResponse struct {
	User *db.User `json:"user"`
}

func (c *Client) Me(ctx context.Context) (*db.User, error) {
	var out userResponse
	if err := c.do(ctx, http.MethodGet, "/user", nil, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

// UpdateProfile sends only the keys present in patch, e.g. {"major": "Physics"}.
func (c *Client) UpdateProfile(ctx context.Context, patch map[string]any) (*db.User, error) {
	var out userResponse
	if err := c.do(ctx, http.MethodPut, "/user", patch, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

func (c *Client) User(ctx context.Context, id string) (*db.User, error) {
	var out userResponse
	if err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

func (c *Client) directory(ctx context.Context, path, query string, limit int) ([]db.User, error) {
	q := url.Values{}
	if query != "" {
		q.Set("q", query)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out struct {
		Users []db.User `json:"users"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Users, nil
}

func (c *Client) Professionals(ctx context.Context, query string, limit int) ([]db.User, error) {
	return c.directory(ctx, "/professionals", query, limit)
}

func (c *Client) Students(ctx context.Context, query string, limit int) ([]db.User, error) {
	return c.directory(ctx, "/students", query, limit)
}

type referralResponse struct {
	Referral *db.Referral `json:"referral"`
}

func (c *Client) CreateReferral(ctx context.Context, refereeEmail, refereeName, jobType string) (*db.Referral, error) {
	var out referralResponse
	in := map[string]string{"referee_email": refereeEmail, "referee_name": refereeName, "job_type": jobType}
	if err := c.do(ctx, http.MethodPost, "/referrals", in, &out); err != nil {
		return nil, err
	}
	return out.Referral, nil
}

func (c *Client) Referrals(ctx context.Context) ([]db.Referral, error) {
	var out struct {
		Referrals []db.Referral `json:"referrals"`
	}
	if err := c.do(ctx, http.MethodGet, "/referrals", nil, &out); err != nil {
		return nil, err
	}
	return out.Referrals, nil
}

func (c *Client) UpdateReferralStatus(ctx context.Context, id, status string) (*db.Referral, error) {
	var out referralResponse
	if err := c.do(ctx, http.MethodPut, "/referrals/"+url.PathEscape(id)+"/status", map[string]string{"status": status}, &out); err != nil {
		return nil, err
	}
	return out.Referral, nil
}

type requestResponse struct {
	Request *db.ReferralRequest `json:"request"`
}

func (c *Client) requestCall(ctx context.Context, method, path string, in any) (*db.ReferralRequest, error) {
	var out requestResponse
	if err := c.do(ctx, method, path, in, &out); err != nil {
		return nil, err
	}
	return out.Request, nil
}

func requestPath(id, suffix string) string {
	return "/requests/" + url.PathEscape(id) + suffix
}

func (c *Client) CreateRequest(ctx context.Context, professionalID, jobPosition, company, message string) (*db.ReferralRequest, error) {
	return c.requestCall(ctx, http.MethodPost, "/requests", map[string]string{
		"professional_id": professionalID, "job_position": jobPosition, "company": company, "message": message,
	})
}

func (c *Client) Requests(ctx context.Context) ([]db.ReferralRequest, error) {
	var out struct {
		Requests []db.ReferralRequest `json:"requests"`
	}
	if err := c.do(ctx, http.MethodGet, "/requests", nil, &out); err != nil {
		return nil, err
	}
	return out.Requests, nil
}

func (c *Client) Request(ctx context.Context, id string) (*db.ReferralRequest, error) {
	return c.requestCall(ctx, http.MethodGet, requestPath(id, ""), nil)
}

// RespondToRequest is the professional's answer: accept, request_payment
// (with amount) or decline.
func (c *Client) RespondToRequest(ctx context.Context, id, action string, amount int64, message string) (*db.ReferralRequest, error) {
	return c.requestCall(ctx, http.MethodPost, requestPath(id, "/respond"), map[string]any{
		"action": action, "amount": amount, "message": message,
	})
}

func (c *Client) RespondToPayment(ctx context.Context, id, action string) (*db.ReferralRequest, error) {
	return c.requestCall(ctx, http.MethodPost, requestPath(id, "/payment/respond"), map[string]string{"action": action})
}

func (c *Client) CompletePayment(ctx context.Context, id, method, upiHandle string) (*db.ReferralRequest, *db.Payment, error) {
	var out struct {
		Request *db.ReferralRequest `json:"request"`
		Payment *db.Payment         `json:"payment"`
	}
	in := map[string]string{"method": method, "upi_handle": upiHandle}
	if err := c.do(ctx, http.MethodPost, requestPath(id, "/payment"), in, &out); err != nil {
		return nil, nil, err
	}
	return out.Request, out.Payment, nil
}

func (c *Client) Payment(ctx context.Context, id string) (*db.Payment, error) {
	var out struct {
		Payment *db.Payment `json:"payment"`
	}
	if err := c.do(ctx, http.MethodGet, requestPath(id, "/payment"), nil, &out); err != nil {
		return nil, err
	}
	return out.Payment, nil
}

// PaymentQRCode returns the PNG of the UPI intent for a request awaiting payment.
func (c *Client) PaymentQRCode(ctx context.Context, id string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+requestPath(id, "/payment/qrcode"), nil)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode, Message: resp.Status}
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) CompleteRequest(ctx context.Context, id, note string) (*db.ReferralRequest, error) {
	return c.requestCall(ctx, http.MethodPost, requestPath(id, "/complete"), map[string]string{"note": note})
}

func (c *Client) CancelRequest(ctx context.Context, id, reason string) (*db.ReferralRequest, error) {
	return c.requestCall(ctx, http.MethodPost, requestPath(id, "/cancel"), map[string]string{"reason": reason})
}

type offerResponse struct {
	Offer *db.ReferralOffer `json:"offer"`
}

func (c *Client) offerCall(ctx context.Context, method, path string, in any) (*db.ReferralOffer, error) {
	var out offerResponse
	if err := c.do(ctx, method, path, in, &out); err != nil {
		return nil, err
	}
	return out.Offer, nil
}

func (c *Client) CreateOffer(ctx context.Context, studentID, jobPosition, company, message string) (*db.ReferralOffer, error) {
	return c.offerCall(ctx, http.MethodPost, "/offers", map[string]string{
		"student_id": studentID, "job_position": jobPosition, "company": company, "message": message,
	})
}

func (c *Client) Offers(ctx context.Context) ([]db.ReferralOffer, error) {
	var out struct {
		Offers []db.ReferralOffer `json:"offers"`
	}
	if err := c.do(ctx, http.MethodGet, "/offers", nil, &out); err != nil {
		return nil, err
	}
	return out.Offers, nil
}

func (c *Client) Offer(ctx context.Context, id string) (*db.ReferralOffer, error) {
	return c.offerCall(ctx, http.MethodGet, "/offers/"+url.PathEscape(id), nil)
}

func (c *Client) RespondToOffer(ctx context.Context, id, action string) (*db.ReferralOffer, error) {
	return c.offerCall(ctx, http.MethodPost, "/offers/"+url.PathEscape(id)+"/respond", map[string]string{"action": action})
}

func (c *Client) CompleteOffer(ctx context.Context, id string) (*db.ReferralOffer, error) {
	return c.offerCall(ctx, http.MethodPost, "/offers/"+url.PathEscape(id)+"/complete", nil)
}
