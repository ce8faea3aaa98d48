/* Copyright (c) 2026 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file in the current directory for license terms
 */
package s3cache

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

const archivePrefix = "tournaments/"

var ErrNotFound = errors.New("archived tournament not found")

var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

// Archive keeps the raw text of applied tournament files in S3.
type Archive struct {
	Client *s3.Client

	bucketName string
	now        func() time.Time
}

// NewArchive returns an Archive that uses client. A nil client is created
// from the default AWS configuration.
func NewArchive(ctx context.Context, bucket string,
	client *s3.Client) (*Archive, error) {

	if client == nil {
		var err error
		_, client, err = newClient(ctx, bucket)
		if err != nil {
			return nil, fmt.Errorf("s3cache.archive: %w", err)
		}
	}

	return &Archive{
		Client:     client,
		bucketName: bucket,
		now:        time.Now,
	}, nil
}

func slug(name string) string {
	s := strings.Trim(slugRe.ReplaceAllString(strings.ToLower(name), "-"), "-")
	if s == "" {
		return "tournament"
	}
	if len(s) > 64 {
		s = strings.TrimRight(s[:64], "-")
	}
	return s
}

func archiveKey(name string, ratingType string, when time.Time,
	id uuid.UUID) string {

	return fmt.Sprintf("%v%v/%v/%v-%v.tsv.gz", archivePrefix, ratingType,
		when.UTC().Format("2006/01/02"), slug(name), id)
}

// ArchiveTournament uploads text compressed and returns its object key.
func (a *Archive) ArchiveTournament(ctx context.Context, name string,
	ratingType string, text string) (string, error) {

	key := archiveKey(name, ratingType, a.now(), uuid.New())
	err := putObject(ctx, a.Client, a.bucketName, key, []byte(text), true,
		"text/tab-separated-values")
	if err != nil {
		return "", fmt.Errorf("s3cache.archive: put %v failed: %w", key, err)
	}

	return key, nil
}

// FetchTournament returns the text previously stored under key.
func (a *Archive) FetchTournament(ctx context.Context, key string) (string,
	error) {

	data, err := getObject(ctx, a.Client, a.bucketName, key, true)
	if err != nil {
		if isNoSuchKey(err) {
			return "", fmt.Errorf("%w: %v", ErrNotFound, key)
		}
		return "", fmt.Errorf("s3cache.archive: get %v failed: %w", key, err)
	}

	return string(data), nil
}

// ListTournaments returns the archived keys for a rating type, or for all
// types when ratingType is empty.
func (a *Archive) ListTournaments(ctx context.Context,
	ratingType string) ([]string, error) {

	prefix := archivePrefix
	if ratingType != "" {
		prefix += ratingType + "/"
	}

	var keys []string
	p := s3.NewListObjectsV2Paginator(a.Client, &s3.ListObjectsV2Input{
		Bucket: aws.String(a.bucketName),
		Prefix: aws.String(prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3cache.archive: list failed: %w", err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}

	return keys, nil
}
