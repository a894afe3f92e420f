package api

import (
	"context"
	"sort"
	"strings"
)

// buildTaggingXML renders a tag set with CamelCase element names, keys in
// deterministic order.
func buildTaggingXML(tags map[string]string) string {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(`<Tagging xmlns="http://s3.amazonaws.com/doc/2006-03-01/"><TagSet>`)
	for _, k := range keys {
		b.WriteString("<Tag>")
		writeTag(&b, "Key", k)
		writeTag(&b, "Value", tags[k])
		b.WriteString("</Tag>")
	}
	b.WriteString("</TagSet></Tagging>")
	return b.String()
}

func parseTaggingXML(body []byte) (tags map[string]string, err error) {
	doc, err := decodeBody(body)
	if err != nil {
		return
	}
	tags = make(map[string]string)
	for _, rec := range doc.Records("/tagging/tagset/tag") {
		tags[rec["/key"]] = rec["/value"]
	}
	return
}

func (c *Client) putTagging(ctx context.Context, bucket, key string, tags map[string]string) (err error) {
	_, err = c.send(ctx, sendParams{
		method:  "PUT",
		bucket:  bucket,
		key:     key,
		params:  map[string]string{"tagging": ""},
		headers: map[string]string{"content-type": "application/xml"},
		body:    xmlBody(buildTaggingXML(tags)),
	})
	return
}

func (c *Client) getTagging(ctx context.Context, bucket, key string) (tags map[string]string, err error) {
	resp, err := c.send(ctx, sendParams{
		method: "GET",
		bucket: bucket,
		key:    key,
		params: map[string]string{"tagging": ""},
	})
	if err != nil {
		return
	}
	return parseTaggingXML(resp.Body)
}

// PutBucketTagging replaces the tag set of a bucket.
func (c *Client) PutBucketTagging(ctx context.Context, bucket string, tags map[string]string) error {
	return c.putTagging(ctx, bucket, "", tags)
}

// GetBucketTagging returns the tag set of a bucket.
func (c *Client) GetBucketTagging(ctx context.Context, bucket string) (map[string]string, error) {
	return c.getTagging(ctx, bucket, "")
}

// PutObjectTagging replaces the tag set of an object.
func (c *Client) PutObjectTagging(ctx context.Context, bucket, key string, tags map[string]string) error {
	return c.putTagging(ctx, bucket, key, tags)
}

// GetObjectTagging returns the tag set of an object.
func (c *Client) GetObjectTagging(ctx context.Context, bucket, key string) (map[string]string, error) {
	return c.getTagging(ctx, bucket, key)
}
