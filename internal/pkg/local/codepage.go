package local

import (
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
)

const codePageUTF8 = 65001

// ConsoleEncoding returns the encoding of the host console, or nil when the
// console already speaks UTF-8.
func ConsoleEncoding() encoding.Encoding {
	return EncodingForCodePage(consoleCodePage())
}

// EncodingForCodePage maps a Windows code page identifier to its decoder.
// Unknown pages and UTF-8 map to nil.
func EncodingForCodePage(cp uint32) encoding.Encoding {
	switch cp {
	case 936:
		return simplifiedchinese.GBK
	case 54936:
		return simplifiedchinese.GB18030
	case 950:
		return traditionalchinese.Big5
	case 932:
		return japanese.ShiftJIS
	case 949:
		return korean.EUCKR
	case 437:
		return charmap.CodePage437
	case 850:
		return charmap.CodePage850
	case 866:
		return charmap.CodePage866
	case 1250:
		return charmap.Windows1250
	case 1251:
		return charmap.Windows1251
	case 1252:
		return charmap.Windows1252
	default:
		return nil
	}
}
