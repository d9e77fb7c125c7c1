package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mpetrovs/tabchat/internal/common"
)

const (
	defaultSignInEndpoint = "https://identitytoolkit.googleapis.com/v1/accounts:signInWithPassword"
	defaultSignUpEndpoint = "https://identitytoolkit.googleapis.com/v1/accounts:signUp"
	defaultTokenEndpoint  = "https://securetoken.googleapis.com/v1/token"
)

// FirebaseProvider implements Provider against the Firebase Auth REST API.
type FirebaseProvider struct {
	APIKey string
	Client *http.Client

	// Overridable in tests.
	SignInEndpoint string
	SignUpEndpoint string
	TokenEndpoint  string
}

type passwordRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type passwordResponse struct {
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
}

type authError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (p *FirebaseProvider) httpClient() *http.Client {
	if p.Client != nil {
		return p.Client
	}
	return http.DefaultClient
}

func (p *FirebaseProvider) SignIn(ctx context.Context, email, password string) (*Session, error) {
	endpoint := p.SignInEndpoint
	if endpoint == "" {
		endpoint = defaultSignInEndpoint
	}
	return p.passwordGrant(ctx, endpoint, email, password)
}

func (p *FirebaseProvider) SignUp(ctx context.Context, email, password string) (*Session, error) {
	endpoint := p.SignUpEndpoint
	if endpoint == "" {
		endpoint = defaultSignUpEndpoint
	}
	return p.passwordGrant(ctx, endpoint, email, password)
}

func (p *FirebaseProvider) passwordGrant(ctx context.Context, endpoint, email, password string) (*Session, error) {
	body, err := json.Marshal(passwordRequest{Email: email, Password: password, ReturnSecureToken: true})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"?key="+url.QueryEscape(p.APIKey), strings.NewReader(string(body)))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", common.ErrorUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeAuthError(resp)
	}

	var pr passwordResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return nil, fmt.Errorf("decoding auth response: %w", err)
	}
	return sessionFromResponse(pr.LocalID, pr.Email, pr.IDToken, pr.RefreshToken, pr.ExpiresIn), nil
}

type refreshResponse struct {
	UserID       string `json:"user_id"`
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    string `json:"expires_in"`
}

func (p *FirebaseProvider) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	endpoint := p.TokenEndpoint
	if endpoint == "" {
		endpoint = defaultTokenEndpoint
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"?key="+url.QueryEscape(p.APIKey), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", common.ErrorUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeAuthError(resp)
	}

	var rr refreshResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return nil, fmt.Errorf("decoding refresh response: %w", err)
	}
	s := sessionFromResponse(rr.UserID, "", rr.IDToken, rr.RefreshToken, rr.ExpiresIn)
	return s, nil
}

func decodeAuthError(resp *http.Response) error {
	var ae authError
	_ = json.NewDecoder(resp.Body).Decode(&ae)
	switch {
	case strings.HasPrefix(ae.Error.Message, "EMAIL_NOT_FOUND"),
		strings.HasPrefix(ae.Error.Message, "INVALID_PASSWORD"),
		strings.HasPrefix(ae.Error.Message, "INVALID_LOGIN_CREDENTIALS"),
		strings.HasPrefix(ae.Error.Message, "INVALID_REFRESH_TOKEN"),
		strings.HasPrefix(ae.Error.Message, "TOKEN_EXPIRED"):
		return fmt.Errorf("%w: %s", common.ErrorUnauthorized, ae.Error.Message)
	case ae.Error.Message == "":
		return fmt.Errorf("auth request failed: %s", resp.Status)
	default:
		return fmt.Errorf("auth request failed: %s", ae.Error.Message)
	}
}

// sessionFromResponse prefers the exp claim of the id token for the expiry;
// the expiresIn field is the fallback when the token is not parseable.
func sessionFromResponse(uid, email, idToken, refreshToken, expiresIn string) *Session {
	s := &Session{UID: uid, Email: email, IDToken: idToken, RefreshToken: refreshToken}

	if claims := parseClaims(idToken); claims != nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			s.ExpiresAt = exp.Time
		}
		if email == "" {
			if e, ok := (*claims)["email"].(string); ok {
				s.Email = e
			}
		}
	}
	if s.ExpiresAt.IsZero() {
		if secs, err := strconv.Atoi(expiresIn); err == nil {
			s.ExpiresAt = time.Now().Add(time.Duration(secs) * time.Second)
		}
	}
	return s
}

// parseClaims reads the payload of the id token without verifying the
// signature; verification is the backend's job, the client only needs the
// expiry and email claims.
func parseClaims(idToken string) *jwt.MapClaims {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(idToken, claims); err != nil {
		return nil
	}
	return &claims
}
