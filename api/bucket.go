package api

import (
	"context"
	"fmt"
	"strings"
)

// BucketInfo describes one entry of a ListBuckets response.
type BucketInfo struct {
	Name         string
	CreationDate string
}

// CreateBucket creates a bucket. The name is validated locally before any
// request is sent.
func (c *Client) CreateBucket(ctx context.Context, bucket string, headers map[string]string) (err error) {
	if err = ValidateBucketName(bucket); err != nil {
		return
	}
	_, err = c.send(ctx, sendParams{method: "PUT", bucket: bucket, headers: headers})
	return
}

// DeleteBucket removes an empty bucket.
func (c *Client) DeleteBucket(ctx context.Context, bucket string) (err error) {
	_, err = c.send(ctx, sendParams{method: "DELETE", bucket: bucket})
	return
}

// HeadBucket probes a bucket and returns its response headers. A missing
// bucket yields a NotFoundError.
func (c *Client) HeadBucket(ctx context.Context, bucket string) (headers map[string]string, err error) {
	resp, err := c.send(ctx, sendParams{method: "HEAD", bucket: bucket, quiet404: true})
	if err != nil {
		return
	}
	return headerMap(resp.Header), nil
}

// BucketExists reports whether the bucket exists. Errors other than
// NotFound are returned as-is.
func (c *Client) BucketExists(ctx context.Context, bucket string) (exists bool, err error) {
	if _, err = c.HeadBucket(ctx, bucket); err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return
	}
	return true, nil
}

// ListBuckets returns every bucket owned by the caller.
func (c *Client) ListBuckets(ctx context.Context) (buckets []BucketInfo, err error) {
	resp, err := c.send(ctx, sendParams{method: "GET"})
	if err != nil {
		return
	}
	doc, err := decodeBody(resp.Body)
	if err != nil {
		return
	}
	names := doc.List("/listallmybucketsresult/buckets/bucket/name")
	dates := doc.List("/listallmybucketsresult/buckets/bucket/creationdate")
	if len(names) != len(dates) {
		return nil, &IntegrityError{
			Reason: "number of creation dates does not match number of buckets",
		}
	}
	buckets = make([]BucketInfo, 0, len(names))
	for i, name := range names {
		buckets = append(buckets, BucketInfo{Name: name, CreationDate: dates[i]})
	}
	return
}

// Grantee identifies the receiver of an ACL grant.
type Grantee struct {
	ID          string
	DisplayName string
	Type        string
	URI         string
}

// Grant pairs a grantee with a permission.
type Grant struct {
	Grantee    Grantee
	Permission string
}

// AccessControlPolicy is the decoded ?acl subresource.
type AccessControlPolicy struct {
	OwnerID          string
	OwnerDisplayName string
	Grants           []Grant
}

// GetBucketAcl retrieves the access control policy of a bucket.
func (c *Client) GetBucketAcl(ctx context.Context, bucket string) (acl AccessControlPolicy, err error) {
	resp, err := c.send(ctx, sendParams{
		method: "GET",
		bucket: bucket,
		params: map[string]string{"acl": ""},
	})
	if err != nil {
		return
	}
	doc, err := decodeBody(resp.Body)
	if err != nil {
		return
	}
	acl.OwnerID = doc.Text("/accesscontrolpolicy/owner/id")
	acl.OwnerDisplayName = doc.Text("/accesscontrolpolicy/owner/displayname")
	for _, rec := range doc.Records("/accesscontrolpolicy/accesscontrollist/grant") {
		acl.Grants = append(acl.Grants, Grant{
			Grantee: Grantee{
				ID:          rec["/grantee/id"],
				DisplayName: rec["/grantee/displayname"],
				URI:         rec["/grantee/uri"],
				Type:        rec["/grantee/type"],
			},
			Permission: rec["/permission"],
		})
	}
	return
}

// PutBucketAcl replaces the access control policy of a bucket.
func (c *Client) PutBucketAcl(ctx context.Context, bucket string, acl AccessControlPolicy) (err error) {
	body := buildAclXML(acl)
	_, err = c.send(ctx, sendParams{
		method:  "PUT",
		bucket:  bucket,
		params:  map[string]string{"acl": ""},
		headers: map[string]string{"content-type": "application/xml"},
		body:    xmlBody(body),
	})
	return
}

func buildAclXML(acl AccessControlPolicy) string {
	var b strings.Builder
	b.WriteString(`<AccessControlPolicy xmlns="http://s3.amazonaws.com/doc/2006-03-01/">`)
	b.WriteString("<Owner>")
	writeTag(&b, "ID", acl.OwnerID)
	writeTag(&b, "DisplayName", acl.OwnerDisplayName)
	b.WriteString("</Owner><AccessControlList>")
	for _, g := range acl.Grants {
		granteeType := g.Grantee.Type
		if granteeType == "" {
			granteeType = "CanonicalUser"
		}
		fmt.Fprintf(&b,
			`<Grant><Grantee xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" xsi:type=%q>`,
			granteeType)
		writeTag(&b, "ID", g.Grantee.ID)
		writeTag(&b, "DisplayName", g.Grantee.DisplayName)
		writeTag(&b, "URI", g.Grantee.URI)
		b.WriteString("</Grantee>")
		writeTag(&b, "Permission", g.Permission)
		b.WriteString("</Grant>")
	}
	b.WriteString("</AccessControlList></AccessControlPolicy>")
	return b.String()
}
