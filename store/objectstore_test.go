package store_test

import (
	"context"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/go-logr/logr"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/marcboeker/s3xfer/store"
	mock_store "github.com/marcboeker/s3xfer/store/mock"
	"go.uber.org/mock/gomock"
)

type notFoundError struct{ smithy.APIError }

func (notFoundError) ErrorCode() string    { return "NoSuchKey" }
func (notFoundError) ErrorMessage() string { return "not found" }
func (notFoundError) ErrorFault() smithy.ErrorFault { return smithy.FaultUnknown }

var _ = Describe("Client", func() {
	var (
		mockCtrl *gomock.Controller
		mockAPI  *mock_store.MockAPI
		client   *store.Client
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		DeferCleanup(mockCtrl.Finish)
		mockAPI = mock_store.NewMockAPI(mockCtrl)
		client = store.NewClient(mockAPI, "test-bucket", logr.Discard())
	})

	Describe("List", func() {
		It("paginates until IsTruncated is false", func(ctx context.Context) {
			first := mockAPI.EXPECT().ListObjectsV2(ctx, gomock.Any()).Return(&awss3.ListObjectsV2Output{
				Contents:              []types.Object{{Key: aws.String("data/a"), Size: aws.Int64(1)}},
				IsTruncated:           aws.Bool(true),
				NextContinuationToken: aws.String("tok"),
			}, nil)
			mockAPI.EXPECT().ListObjectsV2(ctx, gomock.Any()).Return(&awss3.ListObjectsV2Output{
				Contents:    []types.Object{{Key: aws.String("data/b"), Size: aws.Int64(2)}},
				IsTruncated: aws.Bool(false),
			}, nil).After(first)

			entries, _, err := client.List(ctx, "data/", "")
			Expect(err).ToNot(HaveOccurred())
			Expect(entries).To(HaveLen(2))
			Expect(entries[0].Key).To(Equal("data/a"))
			Expect(entries[1].Key).To(Equal("data/b"))
		})
	})

	Describe("Head", func() {
		It("returns not found as a KindNotFound error", func(ctx context.Context) {
			mockAPI.EXPECT().HeadObject(ctx, gomock.Any()).Return(nil, notFoundError{})

			_, _, err := client.Head(ctx, "data/missing")
			Expect(err).To(HaveOccurred())
			Expect(store.IsNotFound(err)).To(BeTrue())
		})

		It("returns content length and metadata", func(ctx context.Context) {
			mockAPI.EXPECT().HeadObject(ctx, gomock.Any()).Return(&awss3.HeadObjectOutput{
				ContentLength: aws.Int64(42),
				Metadata:      map[string]string{"Mtime": "2013-10-04T14:26:04Z"},
			}, nil)

			size, meta, err := client.Head(ctx, "data/key-1")
			Expect(err).ToNot(HaveOccurred())
			Expect(size).To(Equal(int64(42)))
			Expect(meta["Mtime"]).To(Equal("2013-10-04T14:26:04Z"))
		})
	})

	Describe("Get", func() {
		It("passes Range and If-Match through for resume", func(ctx context.Context) {
			mockAPI.EXPECT().GetObject(ctx, gomock.Cond(func(in *awss3.GetObjectInput) bool {
				return aws.ToString(in.Range) == "bytes=10-" && aws.ToString(in.IfMatch) == "etag-1"
			})).Return(&awss3.GetObjectOutput{
				Body:          io.NopCloser(nil),
				ContentLength: aws.Int64(0),
			}, nil)

			_, err := client.Get(ctx, "data/key-1", "bytes=10-", "etag-1")
			Expect(err).ToNot(HaveOccurred())
		})
	})

	Describe("Put", func() {
		It("uploads every part and completes the multipart upload", func(ctx context.Context) {
			mockAPI.EXPECT().CreateMultipartUpload(ctx, gomock.Any()).Return(&awss3.CreateMultipartUploadOutput{
				UploadId: aws.String("upload-1"),
			}, nil)
			mockAPI.EXPECT().UploadPart(ctx, gomock.Any()).Return(&awss3.UploadPartOutput{ETag: aws.String("etag-1")}, nil).Times(2)
			mockAPI.EXPECT().CompleteMultipartUpload(ctx, gomock.Any()).Return(&awss3.CompleteMultipartUploadOutput{
				ETag: aws.String("final-etag"),
			}, nil)

			parts := make(chan store.Part, 2)
			parts <- store.Part{Number: 1, Size: 3, Body: newSeeker("one")}
			parts <- store.Part{Number: 2, Size: 3, Body: newSeeker("two")}
			close(parts)

			etag, err := client.Put(ctx, "data/key-1", parts, map[string]string{"Mtime": "2013-10-04T14:26:04Z"}, 2)
			Expect(err).ToNot(HaveOccurred())
			Expect(etag).To(Equal("final-etag"))
		})

		It("aborts the multipart upload when a part fails", func(ctx context.Context) {
			mockAPI.EXPECT().CreateMultipartUpload(ctx, gomock.Any()).Return(&awss3.CreateMultipartUploadOutput{
				UploadId: aws.String("upload-1"),
			}, nil)
			occurErr := gofakeit.Error()
			mockAPI.EXPECT().UploadPart(ctx, gomock.Any()).Return(nil, occurErr)
			mockAPI.EXPECT().AbortMultipartUpload(ctx, gomock.Any()).Return(&awss3.AbortMultipartUploadOutput{}, nil)

			parts := make(chan store.Part, 1)
			parts <- store.Part{Number: 1, Size: 3, Body: newSeeker("one")}
			close(parts)

			_, err := client.Put(ctx, "data/key-1", parts, nil, 1)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Delete", func() {
		It("treats a 404 as success", func(ctx context.Context) {
			mockAPI.EXPECT().DeleteObject(ctx, gomock.Any()).Return(nil, notFoundError{})
			Expect(client.Delete(ctx, "data/key-1")).To(Succeed())
		})
	})
}, Ordered)

func newSeeker(s string) *seeker { return &seeker{data: []byte(s)} }

type seeker struct {
	data []byte
	pos  int64
}

func (s *seeker) Read(p []byte) (int, error) {
	if s.pos >= int64(len(s.data)) {
		return 0, io.EOF
	}
	n := copy(p, s.data[s.pos:])
	s.pos += int64(n)
	return n, nil
}

func (s *seeker) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		s.pos = offset
	case io.SeekCurrent:
		s.pos += offset
	case io.SeekEnd:
		s.pos = int64(len(s.data)) + offset
	}
	return s.pos, nil
}
