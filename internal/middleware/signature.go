package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"

	"tradeflow/conf"
	"tradeflow/pkg/response"

	"github.com/gin-gonic/gin"
)

// VerifySignature 信号入口验签，HMAC-SHA256整个请求体
// 签名放在 X-Signature 头，hex编码
func VerifySignature() gin.HandlerFunc {
	return func(c *gin.Context) {
		signature := c.GetHeader("X-Signature")
		if signature == "" {
			response.BadRequests(c)
			c.Abort()
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			response.BadRequests(c)
			c.Abort()
			return
		}
		// body要留给后面的handler读
		c.Request.Body = io.NopCloser(bytes.NewBuffer(body))

		if !validMAC(body, signature, conf.AppConfig.Webhook.Secret) {
			response.RequireAuthErr(c, nil)
			c.Abort()
			return
		}
		c.Next()
	}
}

func validMAC(body []byte, signatureHeader, secret string) bool {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(body)
	expectedMAC := h.Sum(nil)
	providedMAC, err := hex.DecodeString(signatureHeader)
	if err != nil {
		return false
	}
	return hmac.Equal(providedMAC, expectedMAC)
}
