package api_test

import (
	"context"
	"fmt"
	"strings"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/derektruong/s3xfer/api"
	"github.com/samber/lo"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func randomBucketName() string {
	return fmt.Sprintf("bucket-%s", strings.ToLower(gofakeit.LetterN(12)))
}

var _ = Describe("Bucket operations", func() {
	It("should run the create/head/list/delete lifecycle", func(ctx context.Context) {
		name := randomBucketName()

		By("creating the bucket")
		Expect(client.CreateBucket(ctx, name, nil)).To(Succeed())

		By("probing the bucket")
		_, err := client.HeadBucket(ctx, name)
		Expect(err).ToNot(HaveOccurred())

		By("finding the bucket in the listing")
		buckets, err := client.ListBuckets(ctx)
		Expect(err).ToNot(HaveOccurred())
		Expect(lo.Map(buckets, func(b api.BucketInfo, _ int) string { return b.Name })).
			To(ContainElement(name))

		By("deleting the bucket")
		Expect(client.DeleteBucket(ctx, name)).To(Succeed())
		exists, err := client.BucketExists(ctx, name)
		Expect(err).ToNot(HaveOccurred())
		Expect(exists).To(BeFalse())
	})

	It("should convert a missing bucket probe into a typed NotFound", func(ctx context.Context) {
		_, err := client.HeadBucket(ctx, "missing-"+gofakeit.LetterN(8))
		Expect(api.IsNotFound(err)).To(BeTrue())
	})

	It("should reject invalid names before any request", func(ctx context.Context) {
		before := mockServer.Requests()
		err := client.CreateBucket(ctx, "Invalid", nil)
		var cfgErr *api.ConfigError
		Expect(err).To(BeAssignableToTypeOf(cfgErr))
		Expect(mockServer.Requests()).To(Equal(before))
	})

	It("should round-trip bucket tagging", func(ctx context.Context) {
		name := randomBucketName()
		Expect(client.CreateBucket(ctx, name, nil)).To(Succeed())
		DeferCleanup(func(ctx context.Context) { _ = client.DeleteBucket(ctx, name) })

		tags := map[string]string{"team": "storage", "env": "test"}
		Expect(client.PutBucketTagging(ctx, name, tags)).To(Succeed())
		got, err := client.GetBucketTagging(ctx, name)
		Expect(err).ToNot(HaveOccurred())
		Expect(got).To(Equal(tags))
	})

	It("should fetch and replace the bucket ACL", func(ctx context.Context) {
		name := randomBucketName()
		Expect(client.CreateBucket(ctx, name, nil)).To(Succeed())
		DeferCleanup(func(ctx context.Context) { _ = client.DeleteBucket(ctx, name) })

		acl, err := client.GetBucketAcl(ctx, name)
		Expect(err).ToNot(HaveOccurred())
		Expect(acl.OwnerID).ToNot(BeEmpty())
		Expect(acl.Grants).ToNot(BeEmpty())

		acl.Grants = append(acl.Grants, api.Grant{
			Grantee:    api.Grantee{ID: "another-user", Type: "CanonicalUser"},
			Permission: "READ",
		})
		Expect(client.PutBucketAcl(ctx, name, acl)).To(Succeed())

		updated, err := client.GetBucketAcl(ctx, name)
		Expect(err).ToNot(HaveOccurred())
		Expect(updated.Grants).To(HaveLen(len(acl.Grants)))
	})
})

var _ = Describe("ValidateBucketName", func() {
	It("should accept a conforming name", func() {
		Expect(api.ValidateBucketName("valid-bucket-1")).To(Succeed())
	})

	DescribeTable("should reject violations with distinct messages",
		func(name, fragment string) {
			err := api.ValidateBucketName(name)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring(fragment))
		},
		Entry("uppercase", "Invalid", "uppercase"),
		Entry("xn-- prefix", "xn--foo", "xn--"),
		Entry("consecutive periods", "a..b", "consecutive periods"),
		Entry("dotted quad", "1.2.3.4", "IP address"),
		Entry("-s3alias suffix", "foo-s3alias", "-s3alias"),
		Entry("empty", "", "empty"),
		Entry("too long", "a"+strings.Repeat("b", 70), "63"),
		Entry("consecutive hyphens", "a--b", "consecutive hyphens"),
		Entry("bad first character", "-abc", "start with"),
		Entry("invalid character", "a_b", "invalid character"),
	)
})
