package api_test

import (
	"context"
	"io"
	"net/http"

	"github.com/derektruong/s3xfer/api"
	"github.com/derektruong/s3xfer/transport"
	"github.com/derektruong/s3xfer/transport/mock"
	"github.com/go-logr/logr"
	"go.uber.org/mock/gomock"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// okResponse is a minimal 200 with an ETag header.
func okResponse() *transport.Response {
	return &transport.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Etag": []string{`"deadbeef"`}},
	}
}

var _ = Describe("Request building", func() {
	var (
		ctrl          *gomock.Controller
		mockTransport *mock.MockClient
		mocked        *api.Client
	)

	BeforeEach(func() {
		ctrl = gomock.NewController(GinkgoT())
		mockTransport = mock.NewMockClient(ctrl)

		var err error
		mocked, err = api.NewClient(logr.Discard(), api.Config{
			Endpoint:  "http://localhost:9000",
			AccessKey: "access",
			SecretKey: "secret",
		}, api.WithTransport(mockTransport))
		Expect(err).ToNot(HaveOccurred())
	})

	It("should address the part upload with query parameters and sign the headers", func(ctx context.Context) {
		mockTransport.EXPECT().
			Do(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, req *transport.Request) (*transport.Response, error) {
				Expect(req.Method).To(Equal("PUT"))
				Expect(req.URL).To(Equal(
					"http://localhost:9000/bucket1/key1?partNumber=4&uploadId=uid-1"))
				Expect(req.Header).To(HaveKey("Authorization"))
				Expect(req.Header["Authorization"]).To(HavePrefix("AWS4-HMAC-SHA256 Credential=access/"))
				Expect(req.Header).To(HaveKeyWithValue("x-amz-content-sha256", "UNSIGNED-PAYLOAD"))
				Expect(req.Header).To(HaveKeyWithValue("content-length", "3"))
				Expect(req.Body.Len()).To(Equal(int64(3)))
				return okResponse(), nil
			})

		etag, err := mocked.UploadPart(ctx, "bucket1", "key1", "uid-1", 4,
			transport.NewMemorySource([]byte("abc")), "")
		Expect(err).ToNot(HaveOccurred())
		Expect(etag).To(Equal("deadbeef"))
	})

	It("should send unsigned requests when credentials are absent", func(ctx context.Context) {
		anon, err := api.NewClient(logr.Discard(), api.Config{
			Endpoint: "http://localhost:9000",
		}, api.WithTransport(mockTransport))
		Expect(err).ToNot(HaveOccurred())

		mockTransport.EXPECT().
			Do(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, req *transport.Request) (*transport.Response, error) {
				Expect(req.Header).ToNot(HaveKey("Authorization"))
				return &transport.Response{StatusCode: http.StatusOK, Header: http.Header{}}, nil
			})

		_, err = anon.GetObject(ctx, "bucket1", "key1", 0, 0, nil)
		Expect(err).ToNot(HaveOccurred())
	})

	It("should attach the inclusive Range header for bounded reads", func(ctx context.Context) {
		mockTransport.EXPECT().
			Do(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, req *transport.Request) (*transport.Response, error) {
				Expect(req.Header).To(HaveKeyWithValue("range", "bytes=100-199"))
				return &transport.Response{StatusCode: http.StatusPartialContent, Header: http.Header{}}, nil
			})

		_, err := mocked.GetObject(ctx, "bucket1", "key1", 100, 199, nil)
		Expect(err).ToNot(HaveOccurred())
	})

	It("should wrap network failures as retryable transport errors", func(ctx context.Context) {
		mockTransport.EXPECT().
			Do(gomock.Any(), gomock.Any()).
			Return(nil, context.DeadlineExceeded)

		_, err := mocked.GetObject(ctx, "bucket1", "key1", 0, 0, nil)
		Expect(err).To(HaveOccurred())
		Expect(api.IsRetryable(err)).To(BeTrue())
	})

	It("should build the completion manifest in ascending order", func(ctx context.Context) {
		var manifest string
		mockTransport.EXPECT().
			Do(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, req *transport.Request) (*transport.Response, error) {
				r, err := req.Body.NewReader()
				Expect(err).ToNot(HaveOccurred())
				defer r.Close()
				data, err := io.ReadAll(r)
				Expect(err).ToNot(HaveOccurred())
				manifest = string(data)
				return &transport.Response{
					StatusCode: http.StatusOK,
					Header:     http.Header{},
					Body: []byte(`<CompleteMultipartUploadResult><ETag>"final-3"</ETag></CompleteMultipartUploadResult>`),
				}, nil
			})

		etag, err := mocked.CompleteMultipartUpload(ctx, "bucket1", "key1", "uid-1",
			[]api.ETag{"e1", "e2", "e3"})
		Expect(err).ToNot(HaveOccurred())
		Expect(etag).To(Equal("final-3"))
		Expect(manifest).To(Equal(
			`<CompleteMultipartUpload xmlns="http://s3.amazonaws.com/doc/2006-03-01/">` +
				`<Part><ETag>e1</ETag><PartNumber>1</PartNumber></Part>` +
				`<Part><ETag>e2</ETag><PartNumber>2</PartNumber></Part>` +
				`<Part><ETag>e3</ETag><PartNumber>3</PartNumber></Part>` +
				`</CompleteMultipartUpload>`))
	})
})
