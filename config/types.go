package config

type Config struct {
	Debug    bool     `mapstructure:"debug"`
	Log      Log      `mapstructure:"log"`
	Server   Server   `mapstructure:"server"`
	Media    Media    `mapstructure:"media"`
	Entities Entities `mapstructure:"entities"`
	Metrics  Metrics  `mapstructure:"metrics"`
}

type Log struct {
	File       string `mapstructure:"file" validate:"omitempty,abspath"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" validate:"min=0"`
	MaxBackups int    `mapstructure:"max_backups" validate:"min=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" validate:"min=0"`
}

type Server struct {
	Address    string       `mapstructure:"address" validate:"required,hostname|ip"`
	Port       int          `mapstructure:"port" validate:"min=0,max=65535"`
	AdminToken string       `mapstructure:"admin_token"`
	Limits     ServerLimits `mapstructure:"limits"`
}

type ServerLimits struct {
	MaxFileSize     uint `mapstructure:"max_file_size" validate:"required"`
	MaxMultipartMem uint `mapstructure:"max_multipart_mem" validate:"required"`
	MaxPayloadSize  uint `mapstructure:"max_payload_size" validate:"required"`
}

type Media struct {
	Strategy        string                  `mapstructure:"strategy" validate:"required,oneof=cloudinary s3"`
	Credentials     Credentials             `mapstructure:"credentials"`
	Cloudinary      CloudinaryMediaStrategy `mapstructure:"cloudinary"`
	S3              *S3MediaStrategy        `mapstructure:"s3" validate:"required_if=Strategy s3"`
	Filesystem      FilesystemMediaStrategy `mapstructure:"filesystem"`
	CleanupOnDelete bool                    `mapstructure:"cleanup_on_delete"`
}

// Credentials gate the remote media backend. For the cloudinary strategy they are
// the cloud name, API key and API secret; for s3 they are the bucket, access key id
// and secret access key.
type Credentials struct {
	CloudName string `mapstructure:"cloud_name"`
	ApiKey    string `mapstructure:"api_key"`
	ApiSecret string `mapstructure:"api_secret"`
}

type CloudinaryMediaStrategy struct {
	Folder string `mapstructure:"folder" validate:"required,localpath"`
}

type S3MediaStrategy struct {
	Region         string `mapstructure:"region"`
	Endpoint       string `mapstructure:"endpoint"`
	PublicUrl      string `mapstructure:"public_url" validate:"required_if=DisableSSL true,omitempty,url,startswith=https://"`
	Prefix         string `mapstructure:"prefix" validate:"omitempty,localpath"`
	ForcePathStyle bool   `mapstructure:"force_path_style"`
	DisableSSL     bool   `mapstructure:"disable_ssl"`
}

type FilesystemMediaStrategy struct {
	Path         string `mapstructure:"path" validate:"required"`
	PublicPrefix string `mapstructure:"public_prefix" validate:"required,urlprefix"`
	ImagePattern string `mapstructure:"image_pattern" validate:"pathpattern"`
	VideoPattern string `mapstructure:"video_pattern" validate:"pathpattern"`
}

type Entities struct {
	Strategy   string                    `mapstructure:"strategy" validate:"required,oneof=sql d1 mongo filesystem git"`
	SQL        *SQLEntityStrategy        `mapstructure:"sql" validate:"required_if=Strategy sql"`
	D1         *D1EntityStrategy         `mapstructure:"d1" validate:"required_if=Strategy d1"`
	Mongo      *MongoEntityStrategy      `mapstructure:"mongo" validate:"required_if=Strategy mongo"`
	Filesystem *FilesystemEntityStrategy `mapstructure:"filesystem" validate:"required_if=Strategy filesystem"`
	Git        *GitEntityStrategy        `mapstructure:"git" validate:"required_if=Strategy git"`
}

type SQLEntityStrategy struct {
	Driver      string  `mapstructure:"driver" validate:"required,oneof=postgres mysql sqlite"`
	DSN         string  `mapstructure:"dsn" validate:"required"`
	TablePrefix *string `mapstructure:"table_prefix" validate:"omitempty,identifier"`
}

type D1EntityStrategy struct {
	AccountID   string `mapstructure:"account_id" validate:"required"`
	DatabaseID  string `mapstructure:"database_id" validate:"required"`
	APIToken    string `mapstructure:"api_token" validate:"required"`
	TablePrefix string `mapstructure:"table_prefix" validate:"omitempty,identifier"`
	Endpoint    string `mapstructure:"endpoint" validate:"omitempty,url"`
}

type MongoEntityStrategy struct {
	URI      string `mapstructure:"uri" validate:"required"`
	Database string `mapstructure:"database" validate:"required"`
}

type FilesystemEntityStrategy struct {
	Path string `mapstructure:"path" validate:"required"`
}

// GitEntityStrategy commits every record to a branch of a remote repository.
// Branch defaults to main and the author to "venue <venue@localhost>".
type GitEntityStrategy struct {
	Repository  string        `mapstructure:"repository" validate:"required"`
	Branch      string        `mapstructure:"branch"`
	Path        string        `mapstructure:"path" validate:"omitempty,localpath"`
	AuthorName  string        `mapstructure:"author_name"`
	AuthorEmail string        `mapstructure:"author_email" validate:"omitempty,email"`
	Auth        GitEntityAuth `mapstructure:"auth"`
}

type GitEntityAuth struct {
	Method string                `mapstructure:"method" validate:"required,oneof=none plain ssh"`
	Plain  *UsernamePasswordAuth `mapstructure:"plain" validate:"required_if=Method plain"`
	Ssh    *SshKeyAuth           `mapstructure:"ssh" validate:"required_if=Method ssh"`
}

type UsernamePasswordAuth struct {
	Username string `mapstructure:"username" validate:"required"`
	Password string `mapstructure:"password" validate:"required"`
}

type SshKeyAuth struct {
	Username           string `mapstructure:"username"`
	PrivateKeyFilePath string `mapstructure:"private_key_file_path" validate:"required,file"`
	Passphrase         string `mapstructure:"passphrase"`
}

type Metrics struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path" validate:"required_if=Enabled true,omitempty,urlprefix"`
}
