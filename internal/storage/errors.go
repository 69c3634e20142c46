package storage

import (
	"errors"
	"strings"

	"github.com/minio/minio-go/v7"
)

// S3 错误码及网关把错误转成字符串后仍可识别的片段。
var (
	missingKeyCodes    = []string{"nosuchkey", "notfound"}
	missingKeyText     = []string{"nosuchkey", "specified key does not exist", "not found"}
	missingBucketCodes = []string{"nosuchbucket"}
	missingBucketText  = []string{"nosuchbucket", "specified bucket does not exist"}
)

// IsNoSuchKey 判断对象是否不存在；导出状态接口据此返回 410。
func IsNoSuchKey(err error) bool {
	return matches(err, missingKeyCodes, missingKeyText)
}

// IsNoSuchBucket 判断 Bucket 是否不存在。
func IsNoSuchBucket(err error) bool {
	return matches(err, missingBucketCodes, missingBucketText)
}

func matches(err error, codes, fragments []string) bool {
	if err == nil {
		return false
	}

	var resp minio.ErrorResponse
	if errors.As(err, &resp) {
		code := strings.ToLower(strings.TrimSpace(resp.Code))
		for _, c := range codes {
			if code == c {
				return true
			}
		}
		if code != "" {
			return false
		}
	}

	lower := strings.ToLower(err.Error())
	for _, f := range fragments {
		if strings.Contains(lower, f) {
			return true
		}
	}
	return false
}
