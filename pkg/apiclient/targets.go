package apiclient

// RegisterTarget mounts a target. The server assigns an id when
// req.TargetID is empty.
func (c *Client) RegisterTarget(req RegisterTarget) (*TargetStatus, error) {
	return createResource[TargetStatus](c, "/api/v1/targets", req)
}

// Target returns the visibility record and resource state of a target.
func (c *Client) Target(id string) (*TargetStatus, error) {
	return getResource[TargetStatus](c, resourcePath("/api/v1/targets/%s", id))
}

// UnregisterTarget unmounts a target.
func (c *Client) UnregisterTarget(id string) error {
	return deleteResource(c, resourcePath("/api/v1/targets/%s", id))
}

// ReportViewport sends one batch of geometry samples.
func (c *Client) ReportViewport(req ViewportRequest) (*ViewportAck, error) {
	return createResource[ViewportAck](c, "/api/v1/viewport", req)
}
