package apiclient

import "net/http"

// Resource describes key from the consumer's point of view.
func (c *Client) Resource(key string) (*ResourceStatus, error) {
	return getResource[ResourceStatus](c, withKey("/api/v1/resources", key))
}

// ResourceContent downloads the cached bytes of key and their media type.
func (c *Client) ResourceContent(key string) ([]byte, string, error) {
	req, err := c.newRequest(http.MethodGet, withKey("/api/v1/resources/content", key), nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Accept", "*/*")

	resp, body, err := c.send(req)
	if err != nil {
		return nil, "", err
	}
	return body, resp.Header.Get("Content-Type"), nil
}
