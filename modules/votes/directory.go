package votes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/teamraj/votebot/api/env"
	"golang.org/x/oauth2/clientcredentials"
)

// DirectoryOracle answers membership from an HTTP directory service
// authenticated with client credentials. Deployments that keep their
// member roster outside the chat platform point the core here instead of
// at the guild oracle.
type DirectoryOracle struct {
	client  *http.Client
	baseUrl string
}

func NewDirectoryOracle() (*DirectoryOracle, error) {
	baseUrl := env.Get("directory.url")
	clientId := env.Get("directory.client_id")
	clientSecret := env.Get("directory.client_secret")
	tokenUrl := env.Get("directory.token_url")

	if baseUrl == "" {
		return nil, errors.New("directory url is not configured")
	}
	if clientId == "" || clientSecret == "" || tokenUrl == "" {
		return nil, errors.New("directory credentials are not configured")
	}

	oauth2Config := &clientcredentials.Config{
		ClientID:     clientId,
		ClientSecret: clientSecret,
		TokenURL:     tokenUrl,
	}

	client := oauth2Config.Client(context.Background())
	client.Timeout = time.Second * 30

	return &DirectoryOracle{
		client:  client,
		baseUrl: strings.TrimSuffix(baseUrl, "/"),
	}, nil
}

type membershipResponse struct {
	Member bool `json:"member"`
}

func (d *DirectoryOracle) IsMember(ctx context.Context, channelId string, userId string) (bool, error) {
	requestUrl := fmt.Sprintf("%s/channels/%s/members/%s", d.baseUrl, channelId, userId)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestUrl, nil)
	if err != nil {
		return false, &OracleError{Kind: KindUnavailable, Err: err}
	}

	response, err := d.client.Do(req)
	if err != nil {
		return false, &OracleError{Kind: KindUnavailable, Err: err}
	}
	defer func() {
		if response.Body != nil {
			_ = response.Body.Close()
		}
	}()

	switch response.StatusCode {
	case http.StatusOK:
		// fall through to the body
	case http.StatusUnauthorized, http.StatusForbidden:
		return false, &OracleError{Kind: KindPermissionDenied, Err: fmt.Errorf("directory returned %d", response.StatusCode)}
	case http.StatusNotFound:
		return false, &OracleError{Kind: KindUnknownSubject, Err: fmt.Errorf("directory returned %d", response.StatusCode)}
	default:
		return false, &OracleError{Kind: KindUnavailable, Err: fmt.Errorf("directory returned %d", response.StatusCode)}
	}

	data := &membershipResponse{}
	err = json.NewDecoder(response.Body).Decode(data)
	if err != nil {
		return false, &OracleError{Kind: KindUnavailable, Err: err}
	}

	return data.Member, nil
}
