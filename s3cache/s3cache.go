/* Copyright (c) 2013 The s3cache AUTHORS. All rights reserved.
 * Copyright (c) 2025-2026 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file in the current directory for license terms
 *
 * Package s3cache stores blobs in Amazon S3. Cache implements
 * httpcache.Cache for the cached http client used when importing
 * tournaments; Archive keeps a copy of every tournament file that was
 * applied to the ratings database.
 */
package s3cache

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// Cache objects store and retrieve http responses using Amazon S3.
type Cache struct {
	Config aws.Config

	// Client is initialized in Init() from the default Config; callers may
	// replace it.
	Client *s3.Client

	bucketName string
	gzip       bool
	logErrors  bool
	ctx        context.Context
}

func isNoSuchKey(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) &&
		(apiErr.ErrorCode() == "NoSuchKey" || apiErr.ErrorCode() == "NotFound")
}

func gzipBytes(data []byte) (*bytes.Buffer, error) {
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	if _, err := gw.Write(data); err != nil {
		return nil, err
	}
	if err := gw.Close(); err != nil {
		return nil, err
	}
	return &buf, nil
}

func getObject(ctx context.Context, client *s3.Client, bucket string,
	key string, compressed bool) ([]byte, error) {

	resp, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var rdr io.Reader = resp.Body
	if compressed {
		gr, err := gzip.NewReader(rdr)
		if err != nil {
			return nil, fmt.Errorf("failed to open compressed object %v/%v: %w",
				bucket, key, err)
		}
		defer gr.Close()
		rdr = gr
	}

	return io.ReadAll(rdr)
}

func putObject(ctx context.Context, client *s3.Client, bucket string,
	key string, data []byte, compressed bool, contentType string) error {

	input := &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if compressed {
		buf, err := gzipBytes(data)
		if err != nil {
			return fmt.Errorf("failed to gzip data for %v/%v: %w", bucket, key,
				err)
		}
		input.Body = bytes.NewReader(buf.Bytes())
		input.ContentEncoding = aws.String("gzip")
	}

	_, err := client.PutObject(ctx, input)
	return err
}

func (c *Cache) Get(key string) ([]byte, bool) {
	objKey := c.cacheKeyToObjectKey(key)
	data, err := getObject(c.ctx, c.Client, c.bucketName, objKey, c.gzip)
	if err != nil {
		// no such key just indicates a cache miss
		if c.logErrors && !isNoSuchKey(err) {
			log.Printf("s3cache.get: failed to get object %v%v: %v",
				c.bucketName, objKey, err)
		}
		return []byte{}, false
	}

	return data, true
}

func (c *Cache) Set(key string, data []byte) {
	objKey := c.cacheKeyToObjectKey(key)
	err := putObject(c.ctx, c.Client, c.bucketName, objKey, data, c.gzip, "")
	if err != nil && c.logErrors {
		log.Printf("s3cache.set: put failed for %v%v: %v", c.bucketName,
			objKey, err)
	}
}

func (c *Cache) Delete(key string) {
	input := &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucketName),
		Key:    aws.String(c.cacheKeyToObjectKey(key)),
	}

	_, err := c.Client.DeleteObject(c.ctx, input)
	if err != nil && c.logErrors {
		log.Printf("s3cache.delete: delete failed: %v", err)
	}
}

func (c *Cache) cacheKeyToObjectKey(key string) string {
	const PathPrefix = "s3cache"

	h := md5.New()
	io.WriteString(h, key)
	objKey := fmt.Sprintf("/%v/%v", PathPrefix, hex.EncodeToString(h.Sum(nil)))
	if c.gzip {
		objKey += ".gz"
	}

	return objKey
}

// New returns a new Cache backed by the given bucket. Callers must invoke
// Init() on the returned Cache before use unless they set Client themselves.
func New(ctxIn context.Context, bucketNameIn string, gzipIn bool,
	logErrorsIn bool) *Cache {

	return &Cache{
		ctx:        ctxIn,
		bucketName: bucketNameIn,
		gzip:       gzipIn,
		logErrors:  logErrorsIn,
	}
}

// Init loads the default AWS configuration (environment, shared config and
// credentials files) and verifies that the bucket can be read and listed.
func (c *Cache) Init() error {
	var err error
	c.Config, c.Client, err = newClient(c.ctx, c.bucketName)
	if err != nil {
		return fmt.Errorf("s3cache.init: %w", err)
	}

	return nil
}

func newClient(ctx context.Context, bucket string) (aws.Config, *s3.Client,
	error) {

	if bucket == "" {
		return aws.Config{}, nil, fmt.Errorf("no bucket configured")
	}
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return cfg, nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	client := s3.NewFromConfig(cfg)

	if _, err = client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(bucket),
	}); err != nil {
		return cfg, nil, fmt.Errorf("head bucket failed for %s: %w", bucket, err)
	}
	if _, err = client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(bucket),
		MaxKeys: aws.Int32(1),
	}); err != nil {
		return cfg, nil, fmt.Errorf("list objects failed for %s: %w", bucket, err)
	}

	return cfg, client, nil
}
