package api_test

import (
	"context"
	"os"
	"path/filepath"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/derektruong/s3xfer/api"
	"github.com/derektruong/s3xfer/transport"
	"github.com/samber/lo"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// patternedBytes returns n bytes of i mod 256.
func patternedBytes(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i % 256)
	}
	return data
}

var _ = Describe("Object operations", func() {
	var bucketName string

	BeforeEach(func(ctx context.Context) {
		bucketName = randomBucketName()
		Expect(client.CreateBucket(ctx, bucketName, nil)).To(Succeed())
		DeferCleanup(func(ctx context.Context) { _ = client.DeleteBucket(ctx, bucketName) })
	})

	It("should round-trip a buffer", func(ctx context.Context) {
		payload := patternedBytes(1024)
		etag, err := client.PutObject(ctx, bucketName, "key1", payload, "", nil)
		Expect(err).ToNot(HaveOccurred())
		Expect(etag).ToNot(BeEmpty())
		Expect(etag).ToNot(ContainSubstring(`"`))

		got, err := client.GetObject(ctx, bucketName, "key1", 0, 0, nil)
		Expect(err).ToNot(HaveOccurred())
		Expect(got).To(Equal(payload))
	})

	It("should honor inclusive byte ranges", func(ctx context.Context) {
		payload := patternedBytes(1000)
		_, err := client.PutObject(ctx, bucketName, "ranged", payload, "", nil)
		Expect(err).ToNot(HaveOccurred())

		got, err := client.GetObject(ctx, bucketName, "ranged", 100, 199, nil)
		Expect(err).ToNot(HaveOccurred())
		Expect(got).To(Equal(payload[100:200]))
	})

	It("should fill a caller-owned buffer at an offset", func(ctx context.Context) {
		payload := patternedBytes(256)
		_, err := client.PutObject(ctx, bucketName, "into", payload, "", nil)
		Expect(err).ToNot(HaveOccurred())

		buffer := make([]byte, 512)
		Expect(client.GetObjectInto(ctx, bucketName, "into", buffer, 128, 0, 127, nil)).To(Succeed())
		Expect(buffer[128:256]).To(Equal(payload[:128]))
	})

	It("should upload from and download to files", func(ctx context.Context) {
		dir := GinkgoT().TempDir()
		src := filepath.Join(dir, "src.bin")
		dst := filepath.Join(dir, "dst.bin")
		payload := patternedBytes(4096)
		Expect(os.WriteFile(src, payload, 0o644)).To(Succeed())

		etag, err := client.PutFileObject(ctx, src, 0, 0, bucketName, "filed", transport.Buffered, "", nil)
		Expect(err).ToNot(HaveOccurred())
		Expect(etag).ToNot(BeEmpty())

		Expect(client.GetFileObject(ctx, dst, bucketName, "filed", 0, 0, 0, nil)).To(Succeed())
		got, err := os.ReadFile(dst)
		Expect(err).ToNot(HaveOccurred())
		Expect(got).To(Equal(payload))
	})

	It("should report object size from HEAD", func(ctx context.Context) {
		payload := patternedBytes(12345)
		_, err := client.PutObject(ctx, bucketName, "sized", payload, "", nil)
		Expect(err).ToNot(HaveOccurred())

		size, err := client.GetObjectSize(ctx, bucketName, "sized")
		Expect(err).ToNot(HaveOccurred())
		Expect(size).To(Equal(int64(12345)))
	})

	It("should convert a missing object probe into a typed NotFound", func(ctx context.Context) {
		_, err := client.HeadObject(ctx, bucketName, "missing")
		Expect(api.IsNotFound(err)).To(BeTrue())

		exists, err := client.ObjectExists(ctx, bucketName, "missing")
		Expect(err).ToNot(HaveOccurred())
		Expect(exists).To(BeFalse())
	})

	It("should attach and return object metadata", func(ctx context.Context) {
		headers, err := api.MetadataHeaders(map[string]string{"origin": "unit-test"})
		Expect(err).ToNot(HaveOccurred())
		_, err = client.PutObject(ctx, bucketName, "meta", []byte("x"), "", headers)
		Expect(err).ToNot(HaveOccurred())

		got, err := client.HeadObject(ctx, bucketName, "meta")
		Expect(err).ToNot(HaveOccurred())
		Expect(got).To(HaveKeyWithValue("x-amz-meta-origin", "unit-test"))
	})

	It("should list objects with prefixes", func(ctx context.Context) {
		for _, key := range []string{"logs/a", "logs/b", "data/c"} {
			_, err := client.PutObject(ctx, bucketName, key, []byte(gofakeit.Word()), "", nil)
			Expect(err).ToNot(HaveOccurred())
		}

		result, err := client.ListObjectsV2(ctx, bucketName, api.ListObjectsV2Config{Prefix: "logs/"})
		Expect(err).ToNot(HaveOccurred())
		Expect(result.Truncated).To(BeFalse())
		Expect(lo.Map(result.Objects, func(o api.ObjectInfo, _ int) string { return o.Key })).
			To(ConsistOf("logs/a", "logs/b"))
		for _, obj := range result.Objects {
			Expect(obj.ETag).ToNot(ContainSubstring("&#34;"))
		}
	})

	It("should list object versions", func(ctx context.Context) {
		_, err := client.PutObject(ctx, bucketName, "versioned", []byte("v1"), "", nil)
		Expect(err).ToNot(HaveOccurred())

		versions, err := client.ListObjectVersions(ctx, bucketName, "")
		Expect(err).ToNot(HaveOccurred())
		Expect(versions).To(HaveLen(1))
		Expect(versions[0].Key).To(Equal("versioned"))
		Expect(versions[0].IsLatest).To(BeTrue())
	})

	It("should round-trip object tagging", func(ctx context.Context) {
		_, err := client.PutObject(ctx, bucketName, "tagged", []byte("x"), "", nil)
		Expect(err).ToNot(HaveOccurred())

		tags := map[string]string{"kind": "fixture"}
		Expect(client.PutObjectTagging(ctx, bucketName, "tagged", tags)).To(Succeed())
		got, err := client.GetObjectTagging(ctx, bucketName, "tagged")
		Expect(err).ToNot(HaveOccurred())
		Expect(got).To(Equal(tags))
	})

	It("should delete objects", func(ctx context.Context) {
		_, err := client.PutObject(ctx, bucketName, "doomed", []byte("x"), "", nil)
		Expect(err).ToNot(HaveOccurred())
		Expect(client.DeleteObject(ctx, bucketName, "doomed")).To(Succeed())

		exists, err := client.ObjectExists(ctx, bucketName, "doomed")
		Expect(err).ToNot(HaveOccurred())
		Expect(exists).To(BeFalse())
	})
})

var _ = Describe("TrimETag", func() {
	DescribeTable("should strip one layer of quoting",
		func(in, want string) {
			Expect(api.TrimETag(in)).To(Equal(want))
		},
		Entry("plain quotes", `"abc123"`, "abc123"),
		Entry("entity quotes", "&#34;abc123&#34;", "abc123"),
		Entry("already bare", "abc123", "abc123"),
		Entry("empty", "", ""),
	)
})
