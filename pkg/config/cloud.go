package config

// DefaultCloudRegion is used for S3 links when no region is configured.
const DefaultCloudRegion = "us-east-1"

// CloudConfig configures the cloud object source.
type CloudConfig struct {
	// Link is the shareable object link: "s3://bucket/key", "gs://bucket/object"
	// or an Azure blob URL.
	Link string `json:"link,omitempty" koanf:"link" toml:"link,omitempty"`

	// Region is the S3 region.
	// Default: "us-east-1"
	Region string `json:"region,omitempty" koanf:"region" toml:"region,omitempty"`

	// Endpoint overrides the S3 endpoint for S3-compatible hosts.
	Endpoint string `json:"endpoint,omitempty" koanf:"endpoint" toml:"endpoint,omitempty"`

	// PathStyle forces path-style S3 addressing.
	PathStyle bool `json:"path_style,omitempty" koanf:"path_style" toml:"path_style,omitempty"`
}

// GetRegion returns the S3 region.
func (c *CloudConfig) GetRegion() string {
	if c == nil || c.Region == "" {
		return DefaultCloudRegion
	}

	return c.Region
}
