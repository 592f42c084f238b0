// Copyright 2023 Greenmask
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package s3

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/client"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/defaults"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
	"github.com/aws/aws-sdk-go/service/sts"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ligate/edgeprep/internal/storages"
	"github.com/ligate/edgeprep/internal/storages/domains"
)

const (
	delimiter   = "/"
	archiveType = "application/gzip"
	// maxDeleteBatch - the key limit of a single DeleteObjects request
	maxDeleteBatch = 1000
)

const (
	errorCodeNotFound  = "NotFound"
	errorCodeNoSuchKey = "NoSuchKey"
)

// Storage - objects kept under the prefix of a bucket
type Storage struct {
	cfg      *Config
	prefix   string
	service  s3iface.S3API
	uploader s3manageriface.UploaderAPI
}

func NewStorage(ctx context.Context, cfg *Config, logLevel string) (*Storage, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid s3 storage config: %w", err)
	}
	ses, err := newSession(cfg)
	if err != nil {
		return nil, err
	}
	awsCfg, err := newAwsConfig(ctx, ses, cfg, logLevel)
	if err != nil {
		return nil, err
	}

	service := s3.New(ses, awsCfg)
	uploader := s3manager.NewUploaderWithClient(service, func(u *s3manager.Uploader) {
		u.PartSize = cfg.MaxPartSize
		u.Concurrency = cfg.Concurrency
	})
	st := newStorage(cfg, service, uploader)

	log.Debug().
		Str("Bucket", cfg.Bucket).
		Str("Prefix", st.prefix).
		Str("Region", aws.StringValue(service.Config.Region)).
		Msg("s3 storage is ready")
	return st, nil
}

func newStorage(cfg *Config, service s3iface.S3API, uploader s3manageriface.UploaderAPI) *Storage {
	return &Storage{
		cfg:      cfg,
		prefix:   normalizePrefix(cfg.Prefix),
		service:  service,
		uploader: uploader,
	}
}

// newSession - the SDK session. The CA bundle is applied here so that role assuming trusts it as well
func newSession(cfg *Config) (*session.Session, error) {
	opts := session.Options{}
	if cfg.CertFile != "" {
		f, err := os.Open(cfg.CertFile)
		if err != nil {
			return nil, fmt.Errorf("cannot open cert file: %w", err)
		}
		defer f.Close()
		opts.CustomCABundle = f
	}
	ses, err := session.NewSessionWithOptions(opts)
	if err != nil {
		return nil, fmt.Errorf("cannot establish s3 session: %w", err)
	}
	return ses, nil
}

func newAwsConfig(ctx context.Context, ses *session.Session, cfg *Config, logLevel string) (*aws.Config, error) {
	awsCfg := aws.NewConfig().
		WithS3ForcePathStyle(cfg.ForcePathStyle).
		WithS3UseAccelerate(cfg.UseAccelerate).
		WithDisableSSL(cfg.DisableSSL).
		WithLogger(LogWrapper{logger: &log.Logger}).
		WithLogLevel(awsLogLevel(logLevel))
	request.WithRetryer(awsCfg, client.DefaultRetryer{NumMaxRetries: cfg.MaxRetries})
	if cfg.Endpoint != "" {
		awsCfg.WithEndpoint(cfg.Endpoint)
	}
	if cfg.Region != "" {
		awsCfg.WithRegion(cfg.Region)
	}
	if cfg.NoVerifySsl {
		awsCfg.WithHTTPClient(&http.Client{
			Transport: &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}},
		})
	}

	static, err := staticCredentials(ctx, ses, cfg)
	if err != nil {
		return nil, err
	}
	if static != nil {
		// the static keys win, the environment and instance profile stay as fallbacks
		providers := append([]credentials.Provider{static}, defaults.CredProviders(awsCfg, defaults.Handlers())...)
		awsCfg.WithCredentials(credentials.NewCredentials(&credentials.ChainProvider{
			VerboseErrors: aws.BoolValue(awsCfg.CredentialsChainVerboseErrors),
			Providers:     providers,
		}))
	}
	return awsCfg, nil
}

// staticCredentials - the configured keys, or the keys of the assumed role when role_arn is set. Nil when no keys
// are available
func staticCredentials(ctx context.Context, ses *session.Session, cfg *Config) (credentials.Provider, error) {
	value := credentials.Value{
		AccessKeyID:     cfg.AccessKeyId,
		SecretAccessKey: cfg.SecretAccessKey,
		SessionToken:    cfg.SessionToken,
	}
	if cfg.RoleArn != "" {
		out, err := sts.New(ses).AssumeRoleWithContext(ctx, &sts.AssumeRoleInput{
			RoleArn:         aws.String(cfg.RoleArn),
			RoleSessionName: aws.String(cfg.SessionName),
		})
		if err != nil {
			return nil, fmt.Errorf("unable to assume role %s: %w", cfg.RoleArn, err)
		}
		value = credentials.Value{
			AccessKeyID:     aws.StringValue(out.Credentials.AccessKeyId),
			SecretAccessKey: aws.StringValue(out.Credentials.SecretAccessKey),
			SessionToken:    aws.StringValue(out.Credentials.SessionToken),
		}
	}
	if value.AccessKeyID == "" || value.SecretAccessKey == "" {
		return nil, nil
	}
	return &credentials.StaticProvider{Value: value}, nil
}

func awsLogLevel(level string) aws.LogLevelType {
	if level == zerolog.LevelDebugValue {
		return aws.LogDebug | aws.LogDebugWithRequestErrors | aws.LogDebugWithRequestRetries
	}
	return aws.LogOff
}

func (s *Storage) Location() string {
	return "s3://" + s.cfg.Bucket + delimiter + s.prefix
}

func (s *Storage) key(name string) *string {
	return aws.String(s.prefix + name)
}

func (s *Storage) List(ctx context.Context) ([]string, error) {
	var names []string
	collect := func(objects []*s3.Object) {
		for _, obj := range objects {
			if name := strings.TrimPrefix(aws.StringValue(obj.Key), s.prefix); name != "" {
				names = append(names, name)
			}
		}
	}

	var err error
	if s.cfg.UseListObjectsV1 {
		err = s.service.ListObjectsPagesWithContext(ctx, &s3.ListObjectsInput{
			Bucket:    aws.String(s.cfg.Bucket),
			Prefix:    aws.String(s.prefix),
			Delimiter: aws.String(delimiter),
		}, func(page *s3.ListObjectsOutput, _ bool) bool {
			collect(page.Contents)
			return true
		})
	} else {
		err = s.service.ListObjectsV2PagesWithContext(ctx, &s3.ListObjectsV2Input{
			Bucket:    aws.String(s.cfg.Bucket),
			Prefix:    aws.String(s.prefix),
			Delimiter: aws.String(delimiter),
		}, func(page *s3.ListObjectsV2Output, _ bool) bool {
			collect(page.Contents)
			return true
		})
	}
	if err != nil {
		return nil, fmt.Errorf("error listing s3 objects: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

func (s *Storage) GetObject(ctx context.Context, name string) (io.ReadCloser, error) {
	out, err := s.service.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    s.key(name),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%s: %w", name, storages.ErrFileNotFound)
		}
		return nil, fmt.Errorf("error getting s3 object %s: %w", name, err)
	}
	return out.Body, nil
}

func (s *Storage) PutObject(ctx context.Context, name string, body io.Reader) error {
	_, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:       aws.String(s.cfg.Bucket),
		Key:          s.key(name),
		Body:         body,
		ContentType:  aws.String(archiveType),
		StorageClass: aws.String(s.cfg.StorageClass),
	})
	if err != nil {
		return fmt.Errorf("error uploading s3 object %s: %w", name, err)
	}
	return nil
}

func (s *Storage) Delete(ctx context.Context, names ...string) error {
	for start := 0; start < len(names); start += maxDeleteBatch {
		batch := names[start:min(start+maxDeleteBatch, len(names))]
		ids := make([]*s3.ObjectIdentifier, 0, len(batch))
		for _, name := range batch {
			ids = append(ids, &s3.ObjectIdentifier{Key: s.key(name)})
		}
		out, err := s.service.DeleteObjectsWithContext(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.cfg.Bucket),
			Delete: &s3.Delete{Objects: ids, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return fmt.Errorf("error deleting s3 objects: %w", err)
		}
		if len(out.Errors) > 0 {
			errs := make([]error, 0, len(out.Errors))
			for _, e := range out.Errors {
				errs = append(errs, fmt.Errorf("%s: %s", aws.StringValue(e.Key), aws.StringValue(e.Message)))
			}
			return fmt.Errorf("error deleting s3 objects: %w", errors.Join(errs...))
		}
	}
	return nil
}

func (s *Storage) Stat(ctx context.Context, name string) (*domains.ObjectStat, error) {
	out, err := s.service.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    s.key(name),
	})
	if err != nil {
		if isNotFound(err) {
			return &domains.ObjectStat{Name: name}, nil
		}
		return nil, fmt.Errorf("error getting s3 object info %s: %w", name, err)
	}
	return &domains.ObjectStat{
		Name:         name,
		LastModified: aws.TimeValue(out.LastModified),
		Exist:        true,
		Size:         aws.Int64Value(out.ContentLength),
	}, nil
}

func isNotFound(err error) bool {
	var awsErr awserr.Error
	return errors.As(err, &awsErr) &&
		(awsErr.Code() == errorCodeNotFound || awsErr.Code() == errorCodeNoSuchKey)
}

// normalizePrefix - the key prefix without a leading delimiter and with a trailing one
func normalizePrefix(prefix string) string {
	prefix = strings.TrimLeft(prefix, delimiter)
	if prefix != "" && !strings.HasSuffix(prefix, delimiter) {
		prefix += delimiter
	}
	return prefix
}
