package storage

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
)

// Signer produces header-signing authorization tokens for the OSS API.
//
// The canonical string-to-sign is provider-specified and must match
// byte-for-byte; a wrong canonical string yields a 403 from the service,
// never a parse error.
type Signer struct {
	AccessKeyID     string
	AccessKeySecret string
}

// StringToSign builds the canonical string for a request:
//
//	VERB\n<content-md5>\n<content-type>\n<date>\n<resource>
//
// This client never sends a Content-MD5 header, so that line is always
// empty. For metadata probes the content-type line is empty as well.
func (s *Signer) StringToSign(verb, contentMD5, contentType, date, resource string) string {
	return verb + "\n" + contentMD5 + "\n" + contentType + "\n" + date + "\n" + resource
}

// Sign returns the base64-encoded HMAC-SHA1 of the canonical string,
// keyed with the access key secret.
func (s *Signer) Sign(verb, contentMD5, contentType, date, resource string) string {
	mac := hmac.New(sha1.New, []byte(s.AccessKeySecret))
	mac.Write([]byte(s.StringToSign(verb, contentMD5, contentType, date, resource)))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Authorization returns the full Authorization header value,
// "OSS <accessKeyId>:<signature>".
func (s *Signer) Authorization(verb, contentMD5, contentType, date, resource string) string {
	return "OSS " + s.AccessKeyID + ":" + s.Sign(verb, contentMD5, contentType, date, resource)
}
