package meta_test

import (
	"bytes"
	"context"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/go-logr/logr"
	"github.com/marcboeker/s3xfer/meta"
	"github.com/marcboeker/s3xfer/store"
	mock_store "github.com/marcboeker/s3xfer/store/mock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
)

type notFoundError struct{ smithy.APIError }

func (notFoundError) ErrorCode() string             { return "NoSuchKey" }
func (notFoundError) ErrorMessage() string          { return "not found" }
func (notFoundError) ErrorFault() smithy.ErrorFault { return smithy.FaultUnknown }

var _ = Describe("Layer", func() {
	var (
		mockCtrl *gomock.Controller
		mockAPI  *mock_store.MockAPI
		layer    *meta.Layer
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		DeferCleanup(mockCtrl.Finish)
		mockAPI = mock_store.NewMockAPI(mockCtrl)
		client := store.NewClient(mockAPI, "test-bucket", logr.Discard())
		layer = meta.NewLayer(client, "tree")
	})

	It("writes the md5sum sidecar as a single part", func(ctx context.Context) {
		mockAPI.EXPECT().CreateMultipartUpload(ctx, gomock.Cond(func(in *awss3.CreateMultipartUploadInput) bool {
			return aws.ToString(in.Key) == "meta/tree/key-1/md5sum"
		})).Return(&awss3.CreateMultipartUploadOutput{UploadId: aws.String("u1")}, nil)
		mockAPI.EXPECT().UploadPart(ctx, gomock.Any()).Return(&awss3.UploadPartOutput{ETag: aws.String("e1")}, nil)
		mockAPI.EXPECT().CompleteMultipartUpload(ctx, gomock.Any()).Return(&awss3.CompleteMultipartUploadOutput{ETag: aws.String("e1")}, nil)

		Expect(layer.PutMeta(ctx, "key-1", "md5sum", "e28cbeebcc243df62a59d90ddfe4b3e8\n")).To(Succeed())
	})

	It("reads a sidecar's full body", func(ctx context.Context) {
		mockAPI.EXPECT().GetObject(ctx, gomock.Cond(func(in *awss3.GetObjectInput) bool {
			return aws.ToString(in.Key) == "meta/tree/key-1/md5sum"
		})).Return(&awss3.GetObjectOutput{
			Body: io.NopCloser(bytes.NewReader([]byte("e28cbeebcc243df62a59d90ddfe4b3e8\n"))),
		}, nil)

		value, err := layer.GetMeta(ctx, "key-1", "md5sum")
		Expect(err).ToNot(HaveOccurred())
		Expect(value).To(Equal("e28cbeebcc243df62a59d90ddfe4b3e8\n"))
	})

	Describe("DeleteMeta", func() {
		It("is a no-op when the sidecar never existed", func(ctx context.Context) {
			mockAPI.EXPECT().HeadObject(ctx, gomock.Any()).Return(nil, notFoundError{})
			Expect(layer.DeleteMeta(ctx, "key-1", "cryptokey")).To(Succeed())
		})

		It("deletes an existing sidecar", func(ctx context.Context) {
			mockAPI.EXPECT().HeadObject(ctx, gomock.Any()).Return(&awss3.HeadObjectOutput{ContentLength: aws.Int64(10)}, nil)
			mockAPI.EXPECT().DeleteObject(ctx, gomock.Any()).Return(&awss3.DeleteObjectOutput{}, nil)
			Expect(layer.DeleteMeta(ctx, "key-1", "cryptokey")).To(Succeed())
		})
	})

	It("deletes every sidecar under a path, leaving no orphans", func(ctx context.Context) {
		mockAPI.EXPECT().ListObjectsV2(ctx, gomock.Any()).Return(&awss3.ListObjectsV2Output{
			Contents: []types.Object{
				{Key: aws.String("meta/tree/key-1/md5sum")},
				{Key: aws.String("meta/tree/key-1/cryptokey")},
			},
		}, nil)
		mockAPI.EXPECT().DeleteObject(ctx, gomock.Any()).Return(&awss3.DeleteObjectOutput{}, nil).Times(2)

		Expect(layer.DeleteAllMeta(ctx, "key-1")).To(Succeed())
	})

	It("lists sidecar names relative to the meta prefix", func(ctx context.Context) {
		mockAPI.EXPECT().ListObjectsV2(ctx, gomock.Any()).Return(&awss3.ListObjectsV2Output{
			Contents: []types.Object{
				{Key: aws.String("meta/tree/key-1/md5sum")},
				{Key: aws.String("meta/tree/key-1/cryptokey")},
			},
		}, nil)

		names, err := layer.ListSidecarNames(ctx, "key-1")
		Expect(err).ToNot(HaveOccurred())
		Expect(names).To(ConsistOf("md5sum", "cryptokey"))
	})
})
