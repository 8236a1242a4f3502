package midealan

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

// Vendor cloud endpoints and app identity. The cloud only takes part in
// pairing; day-to-day control stays on the LAN.
const (
	cloudBaseURL = "https://mapp.appsmb.com/v1"
	cloudAppID   = "1017"
	cloudAppKey  = "3742e9e5842d4ad59c2db887e12449f9"
	cloudFormat  = "2"
	cloudLang    = "en_US"

	cloudTimeout = 15 * time.Second
)

// CloudClient talks to the vendor account API to obtain the token/key pair a
// unit accepts for its LAN handshake.
type CloudClient struct {
	baseURL  string
	username string
	password string
	http     *http.Client

	sessionID string
}

// NewCloudClient creates a client for the given vendor account.
func NewCloudClient(username, password string) *CloudClient {
	return &CloudClient{
		baseURL:  cloudBaseURL,
		username: username,
		password: password,
		http:     &http.Client{Timeout: cloudTimeout},
	}
}

type cloudEnvelope struct {
	ErrorCode string          `json:"errorCode"`
	Msg       string          `json:"msg"`
	Result    json.RawMessage `json:"result"`
}

// GetToken logs in if needed and fetches LAN credentials for a unit. Both
// values come back hex encoded, which is how the transport expects them.
func (c *CloudClient) GetToken(ctx context.Context, deviceID int64) (token, key string, err error) {
	if c.sessionID == "" {
		if err := c.login(ctx); err != nil {
			return "", "", err
		}
	}

	var result struct {
		TokenList []struct {
			UDPID string `json:"udpId"`
			Token string `json:"token"`
			Key   string `json:"key"`
		} `json:"tokenlist"`
	}
	err = c.call(ctx, "/iot/secure/getToken", url.Values{
		"udpid": {udpID(deviceID)},
	}, &result)
	if err != nil {
		return "", "", err
	}

	want := udpID(deviceID)
	for _, entry := range result.TokenList {
		if entry.UDPID == want {
			return entry.Token, entry.Key, nil
		}
	}
	return "", "", fmt.Errorf("no credentials issued for device %d", deviceID)
}

// login performs the two-step id/password exchange and stores the session.
func (c *CloudClient) login(ctx context.Context) error {
	if c.username == "" || c.password == "" {
		return fmt.Errorf("vendor account credentials not configured")
	}

	var idResult struct {
		LoginID string `json:"loginId"`
	}
	err := c.call(ctx, "/user/login/id/get", url.Values{
		"loginAccount": {c.username},
	}, &idResult)
	if err != nil {
		return fmt.Errorf("requesting login id: %w", err)
	}

	var loginResult struct {
		SessionID string `json:"sessionId"`
	}
	err = c.call(ctx, "/user/login", url.Values{
		"loginAccount": {c.username},
		"password":     {hashPassword(idResult.LoginID, c.password)},
	}, &loginResult)
	if err != nil {
		return fmt.Errorf("logging in: %w", err)
	}

	c.sessionID = loginResult.SessionID
	return nil
}

// call posts a signed form request and decodes the result payload.
func (c *CloudClient) call(ctx context.Context, path string, params url.Values, result any) error {
	params.Set("appId", cloudAppID)
	params.Set("format", cloudFormat)
	params.Set("language", cloudLang)
	params.Set("stamp", time.Now().UTC().Format("20060102150405"))
	if c.sessionID != "" {
		params.Set("sessionId", c.sessionID)
	}
	params.Set("sign", sign(path, params))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path,
		bytes.NewBufferString(params.Encode()))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	var envelope cloudEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	if envelope.ErrorCode != "" && envelope.ErrorCode != "0" {
		return fmt.Errorf("%s: vendor error %s: %s", path, envelope.ErrorCode, envelope.Msg)
	}

	if result != nil {
		if err := json.Unmarshal(envelope.Result, result); err != nil {
			return fmt.Errorf("decoding result: %w", err)
		}
	}
	return nil
}

// sign computes the request signature: SHA-256 over the path, the sorted
// query string and the app key.
func sign(path string, params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var query strings.Builder
	for i, k := range keys {
		if i > 0 {
			query.WriteByte('&')
		}
		query.WriteString(k)
		query.WriteByte('=')
		query.WriteString(params.Get(k))
	}

	sum := sha256.Sum256([]byte("/v1" + path + query.String() + cloudAppKey))
	return hex.EncodeToString(sum[:])
}

// hashPassword derives the login password digest from the account-specific
// login id.
func hashPassword(loginID, password string) string {
	inner := sha256.Sum256([]byte(password))
	outer := sha256.Sum256([]byte(loginID + hex.EncodeToString(inner[:]) + cloudAppKey))
	return hex.EncodeToString(outer[:])
}

// udpID derives the identifier the token service keys credentials by: the
// SHA-256 of the little-endian device id, with the two digest halves XORed.
func udpID(deviceID int64) string {
	var raw [8]byte
	binary.LittleEndian.PutUint64(raw[:], uint64(deviceID)) //nolint:gosec // protocol field

	sum := sha256.Sum256(raw[:])
	half := len(sum) / 2
	out := make([]byte, half)
	for i := 0; i < half; i++ {
		out[i] = sum[i] ^ sum[i+half]
	}
	return hex.EncodeToString(out)
}
