package types

import (
	"fmt"
)

// TextureAPI tells which GPU API a Texture handle belongs to.
type TextureAPI int

const (
	TextureAPIUndefined = TextureAPI(iota)
	TextureAPID3D11
	TextureAPIDXVA2
	TextureAPIQSV
	TextureAPIVAAPI
	TextureAPIVDPAU
	TextureAPICUDA
	TextureAPIOpenCL
	TextureAPIMetal
	TextureAPIVideoToolbox
)

func (api TextureAPI) String() string {
	switch api {
	case TextureAPIUndefined:
		return "undefined"
	case TextureAPID3D11:
		return "d3d11"
	case TextureAPIDXVA2:
		return "dxva2"
	case TextureAPIQSV:
		return "qsv"
	case TextureAPIVAAPI:
		return "vaapi"
	case TextureAPIVDPAU:
		return "vdpau"
	case TextureAPICUDA:
		return "cuda"
	case TextureAPIOpenCL:
		return "opencl"
	case TextureAPIMetal:
		return "metal"
	case TextureAPIVideoToolbox:
		return "videotoolbox"
	}
	return fmt.Sprintf("unknown_texture_api_%d", int(api))
}

// Texture is an opaque GPU resource handle. Handle is a native pointer for
// pointer-based APIs (ID3D11Texture2D*, CUdeviceptr, cl_mem, MTLTexture*)
// or a surface ID for ID-based ones (VASurfaceID, VdpVideoSurface). It is
// valid only while the frame that returned it is alive.
type Texture struct {
	API    TextureAPI
	Handle uintptr
	Plane  int
}

func (t Texture) String() string {
	return fmt.Sprintf("%s:%#x[%d]", t.API, t.Handle, t.Plane)
}
