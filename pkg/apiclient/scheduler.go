package apiclient

// SchedulerStatus returns the scheduler snapshot.
func (c *Client) SchedulerStatus() (*SchedulerStatus, error) {
	return getResource[SchedulerStatus](c, "/api/v1/scheduler")
}

// Enqueue queues keys at priority ("high", "medium" or "low"; empty means
// medium).
func (c *Client) Enqueue(keys []string, priority string) (*EnqueueResponse, error) {
	return createResource[EnqueueResponse](c, "/api/v1/scheduler/enqueue", EnqueueRequest{
		Keys:     keys,
		Priority: priority,
	})
}
