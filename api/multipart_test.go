package api_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"

	"github.com/derektruong/s3xfer/api"
	"github.com/derektruong/s3xfer/transport"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Multipart uploads", func() {
	var bucketName string

	BeforeEach(func(ctx context.Context) {
		bucketName = randomBucketName()
		Expect(client.CreateBucket(ctx, bucketName, nil)).To(Succeed())
		DeferCleanup(func(ctx context.Context) { _ = client.DeleteBucket(ctx, bucketName) })
	})

	It("should assemble parts into the final object", func(ctx context.Context) {
		payload := patternedBytes(19_000_000)
		partSize := (len(payload) + 2) / 3

		up, err := client.NewMultipartUpload(ctx, bucketName, "assembled", nil)
		Expect(err).ToNot(HaveOccurred())
		Expect(up.ID()).ToNot(BeEmpty())

		for i := 0; i < 3; i++ {
			begin := i * partSize
			end := min(begin+partSize, len(payload))
			etag, err := up.UploadPart(ctx, i+1,
				transport.NewMemorySource(payload[begin:end]), "")
			Expect(err).ToNot(HaveOccurred())
			Expect(etag).ToNot(BeEmpty())
		}

		etag, err := up.Complete(ctx)
		Expect(err).ToNot(HaveOccurred())
		Expect(etag).To(HaveSuffix("-3"))

		got, err := client.GetObject(ctx, bucketName, "assembled", 0, 0, nil)
		Expect(err).ToNot(HaveOccurred())
		Expect(bytes.Equal(got, payload)).To(BeTrue())
	})

	It("should sort out-of-order parts into an ascending manifest", func(ctx context.Context) {
		up, err := client.NewMultipartUpload(ctx, bucketName, "shuffled", nil)
		Expect(err).ToNot(HaveOccurred())

		// arrival order 3, 1, 2: the manifest must still be 1, 2, 3 or the
		// mock (like the real API) rejects it with InvalidPartOrder
		for _, n := range []int{3, 1, 2} {
			_, err = up.UploadPart(ctx, n,
				transport.NewMemorySource(bytes.Repeat([]byte{byte(n)}, 16)), "")
			Expect(err).ToNot(HaveOccurred())
		}

		_, err = up.Complete(ctx)
		Expect(err).ToNot(HaveOccurred())

		got, err := client.GetObject(ctx, bucketName, "shuffled", 0, 0, nil)
		Expect(err).ToNot(HaveOccurred())
		want := append(append(bytes.Repeat([]byte{1}, 16), bytes.Repeat([]byte{2}, 16)...),
			bytes.Repeat([]byte{3}, 16)...)
		Expect(got).To(Equal(want))
	})

	It("should abort an upload and release its id", func(ctx context.Context) {
		up, err := client.NewMultipartUpload(ctx, bucketName, "aborted", nil)
		Expect(err).ToNot(HaveOccurred())

		for i := 1; i <= 3; i++ {
			_, err = up.UploadPart(ctx, i, transport.NewMemorySource(patternedBytes(1024)), "")
			Expect(err).ToNot(HaveOccurred())
		}

		Expect(up.Abort(ctx)).To(Succeed())
		Expect(mockServer.UploadCount()).To(BeZero())

		exists, err := client.ObjectExists(ctx, bucketName, "aborted")
		Expect(err).ToNot(HaveOccurred())
		Expect(exists).To(BeFalse())
	})

	It("should refuse to complete without parts", func(ctx context.Context) {
		up, err := client.NewMultipartUpload(ctx, bucketName, "empty", nil)
		Expect(err).ToNot(HaveOccurred())
		DeferCleanup(func(ctx context.Context) { _ = up.Abort(ctx) })

		_, err = up.Complete(ctx)
		var progErr *api.ProgrammingError
		Expect(err).To(BeAssignableToTypeOf(progErr))
	})

	It("should refuse duplicate part numbers in the completion list", func(ctx context.Context) {
		_, err := client.CompleteMultipartUpload(ctx, bucketName, "dup", "some-id", nil)
		var progErr *api.ProgrammingError
		Expect(err).To(BeAssignableToTypeOf(progErr))

		up, err := client.NewMultipartUpload(ctx, bucketName, "dup", nil)
		Expect(err).ToNot(HaveOccurred())
		DeferCleanup(func(ctx context.Context) { _ = up.Abort(ctx) })
		for range 2 {
			_, err = up.UploadPart(ctx, 7, transport.NewMemorySource([]byte("x")), "")
			Expect(err).ToNot(HaveOccurred())
		}
		_, err = up.Complete(ctx)
		Expect(err).To(BeAssignableToTypeOf(progErr))
	})

	It("should retry server failures within the per-part ceiling", func(ctx context.Context) {
		up, err := client.NewMultipartUpload(ctx, bucketName, "retried", nil,
			api.WithPartRetries(3))
		Expect(err).ToNot(HaveOccurred())

		mockServer.FailNext(2, http.StatusInternalServerError, func(r *http.Request) bool {
			return r.Method == http.MethodPut && r.URL.Query().Has("partNumber")
		})

		_, err = up.UploadPart(ctx, 1, transport.NewMemorySource(patternedBytes(64)), "")
		Expect(err).ToNot(HaveOccurred())

		_, err = up.Complete(ctx)
		Expect(err).ToNot(HaveOccurred())
	})

	It("should stop retrying once the shared budget is dry", func(ctx context.Context) {
		budget := api.NewRetryBudget(1)
		up, err := client.NewMultipartUpload(ctx, bucketName, "starved", nil,
			api.WithPartRetries(10), api.WithRetryBudget(budget))
		Expect(err).ToNot(HaveOccurred())
		DeferCleanup(func(ctx context.Context) { _ = up.Abort(ctx) })

		mockServer.FailNext(5, http.StatusInternalServerError, func(r *http.Request) bool {
			return r.Method == http.MethodPut && r.URL.Query().Has("partNumber")
		})
		DeferCleanup(func() { mockServer.FailNext(0, 0, nil) })

		_, err = up.UploadPart(ctx, 1, transport.NewMemorySource(patternedBytes(64)), "")
		Expect(err).To(HaveOccurred())
		Expect(budget.Used()).To(Equal(int64(1)))
	})

	It("should not retry 4xx responses", func(ctx context.Context) {
		up, err := client.NewMultipartUpload(ctx, bucketName, "terminal", nil,
			api.WithPartRetries(5))
		Expect(err).ToNot(HaveOccurred())
		DeferCleanup(func(ctx context.Context) { _ = up.Abort(ctx) })

		mockServer.FailNext(1, http.StatusForbidden, func(r *http.Request) bool {
			return r.Method == http.MethodPut && r.URL.Query().Has("partNumber")
		})
		DeferCleanup(func() { mockServer.FailNext(0, 0, nil) })

		before := mockServer.Requests()
		_, err = up.UploadPart(ctx, 1, transport.NewMemorySource(patternedBytes(64)), "")
		Expect(err).To(HaveOccurred())
		var protoErr *api.ProtocolError
		Expect(errors.As(err, &protoErr)).To(BeTrue())
		Expect(mockServer.Requests() - before).To(Equal(1))
	})

	It("should reject out-of-range part numbers", func(ctx context.Context) {
		_, err := client.UploadPart(ctx, bucketName, "k", "id", 0, transport.NewMemorySource([]byte("x")), "")
		var progErr *api.ProgrammingError
		Expect(err).To(BeAssignableToTypeOf(progErr))

		_, err = client.UploadPart(ctx, bucketName, "k", "id", api.MaxParts+1, transport.NewMemorySource([]byte("x")), "")
		Expect(err).To(BeAssignableToTypeOf(progErr))
	})
})

var _ = Describe("Presigned URLs", func() {
	It("should produce a dereferenceable GET URL", func(ctx context.Context) {
		bucketName := randomBucketName()
		Expect(client.CreateBucket(ctx, bucketName, nil)).To(Succeed())
		DeferCleanup(func(ctx context.Context) { _ = client.DeleteBucket(ctx, bucketName) })

		payload := patternedBytes(512)
		_, err := client.PutObject(ctx, bucketName, "presigned", payload, "", nil)
		Expect(err).ToNot(HaveOccurred())

		u, err := client.SignedURL(http.MethodGet, bucketName, "presigned", 600, nil)
		Expect(err).ToNot(HaveOccurred())
		Expect(u).To(HavePrefix(mockServer.URL()))
		Expect(u).To(ContainSubstring("X-Amz-Signature="))

		resp, err := http.Get(u)
		Expect(err).ToNot(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		var got bytes.Buffer
		_, err = got.ReadFrom(resp.Body)
		Expect(err).ToNot(HaveOccurred())
		Expect(got.Bytes()).To(Equal(payload))
	})
})

var _ = Describe("Error classification", func() {
	It("should surface the XML error code", func(ctx context.Context) {
		_, err := client.GetObject(ctx, "nosuchbucket-zzz", "k", 0, 0, nil)
		var protoErr *api.ProtocolError
		Expect(errors.As(err, &protoErr)).To(BeTrue())
		Expect(protoErr.Code).To(Equal("NoSuchBucket"))
		Expect(protoErr.StatusCode).To(Equal(http.StatusNotFound))
	})

	It("should mark 5xx retryable and 4xx terminal", func() {
		Expect(api.IsRetryable(&api.ProtocolError{StatusCode: 503})).To(BeTrue())
		Expect(api.IsRetryable(&api.ProtocolError{StatusCode: 404})).To(BeFalse())
		Expect(api.IsRetryable(&api.TransportError{Err: context.DeadlineExceeded})).To(BeTrue())
		Expect(api.IsRetryable(&api.IntegrityError{Reason: "x"})).To(BeFalse())
	})
})
