package apiclient

// CacheStatus returns cache occupancy.
func (c *Client) CacheStatus() (*CacheStatus, error) {
	return getResource[CacheStatus](c, "/api/v1/cache")
}

// CacheEntries lists resident resources, least recently used first.
func (c *Client) CacheEntries() ([]CacheEntry, error) {
	return listResources[CacheEntry](c, "/api/v1/cache/entries")
}

// ClearCache evicts every resource.
func (c *Client) ClearCache() error {
	return deleteResource(c, "/api/v1/cache")
}

// EvictResource removes one resource from the cache.
func (c *Client) EvictResource(key string) error {
	return deleteResource(c, withKey("/api/v1/cache/entries", key))
}
